package handler

import (
	"net/http"

	"github.com/stevemurr/circular-table-server/restaurant"
)

func (h *Handler) listRestaurants(w http.ResponseWriter, r *http.Request) {
	var (
		list []restaurant.Restaurant
		err  error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		list, err = h.restaurants.Search(r.Context(), q)
	} else {
		list, err = h.restaurants.List(r.Context())
	}
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	if list == nil {
		list = []restaurant.Restaurant{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) createRestaurant(w http.ResponseWriter, r *http.Request) {
	var in restaurant.CreateInput
	if err := readJSON(w, r, &in); err != nil {
		h.bodyError(w, err)
		return
	}
	created, err := h.restaurants.Create(r.Context(), in)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) updateRestaurant(w http.ResponseWriter, r *http.Request) {
	var in restaurant.UpdateInput
	if err := readJSON(w, r, &in); err != nil {
		h.bodyError(w, err)
		return
	}
	updated, err := h.restaurants.Update(r.Context(), in)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteRestaurant(w http.ResponseWriter, r *http.Request) {
	if err := h.restaurants.Delete(r.Context(), r.URL.Query().Get("id")); err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Restaurant deleted successfully"})
}
