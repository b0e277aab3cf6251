package restaurant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stevemurr/circular-table-server/apperror"
	"github.com/stevemurr/circular-table-server/metrics"
	"github.com/stevemurr/circular-table-server/store"
)

// ConsistencyMode selects how mutations write the collection back.
type ConsistencyMode string

const (
	// Optimistic re-reads and retries when another writer got in between
	// the read and the write, so no update is lost.
	Optimistic ConsistencyMode = "optimistic"

	// LastWriteWins overwrites unconditionally. Two concurrent mutations
	// that read the same state will each write back only their own change,
	// silently dropping the other.
	LastWriteWins ConsistencyMode = "last-write-wins"
)

const DefaultKey = "restaurants"

type Options struct {
	// Key is the store key holding the collection.
	Key        string
	Mode       ConsistencyMode
	MaxRetries int
	Logger     *zap.Logger
	Metrics    *metrics.Metrics

	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

// Service owns the restaurant collection. It keeps no state between calls:
// every operation re-reads the collection from the store.
type Service struct {
	store    store.Store
	opts     Options
	validate *validator.Validate
}

func NewService(s store.Store, opts Options) *Service {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Mode == "" {
		opts.Mode = Optimistic
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.NewString() }
	}
	return &Service{store: s, opts: opts, validate: validator.New()}
}

// List returns the whole collection in insertion order.
func (s *Service) List(ctx context.Context) ([]Restaurant, error) {
	list, _, err := s.load(ctx)
	if err != nil {
		return nil, apperror.NewInternal("Failed to get restaurants", err)
	}
	return list, nil
}

// Search returns the records whose name, address or notes contain query,
// ignoring case. An empty query returns everything.
func (s *Service) Search(ctx context.Context, query string) ([]Restaurant, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return list, nil
	}
	out := make([]Restaurant, 0, len(list))
	for _, r := range list {
		if r.matches(query) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Create appends a new record with a fresh id and timestamp.
func (s *Service) Create(ctx context.Context, in CreateInput) (Restaurant, error) {
	if strings.TrimSpace(in.Name) == "" || in.Lat == nil || in.Lng == nil {
		return Restaurant{}, apperror.NewValidation("Name, latitude, and longitude are required")
	}
	if err := s.check(in); err != nil {
		return Restaurant{}, err
	}

	var created Restaurant
	err := s.mutate(ctx, "create", "Failed to add restaurant", func(list []Restaurant) ([]Restaurant, error) {
		created = Restaurant{
			ID:        s.uniqueID(list),
			Name:      in.Name,
			Address:   in.Address,
			Notes:     in.Notes,
			Lat:       in.Lat.float(),
			Lng:       in.Lng.float(),
			DateAdded: formatDate(s.opts.Now()),
		}
		return append(list, created), nil
	})
	if err != nil {
		return Restaurant{}, err
	}
	s.opts.Logger.Info("restaurant created", zap.String("id", created.ID), zap.String("name", created.Name))
	return created, nil
}

// Update overwrites the supplied fields of the record with in.ID, keeping
// its position in the collection.
func (s *Service) Update(ctx context.Context, in UpdateInput) (Restaurant, error) {
	if in.ID == "" {
		return Restaurant{}, apperror.NewValidation("Restaurant ID is required")
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return Restaurant{}, apperror.NewValidation("Name must not be empty")
	}
	if err := s.check(in); err != nil {
		return Restaurant{}, err
	}

	var updated Restaurant
	err := s.mutate(ctx, "update", "Failed to update restaurant", func(list []Restaurant) ([]Restaurant, error) {
		i := indexOf(list, in.ID)
		if i < 0 {
			return nil, apperror.NewNotFound("Restaurant not found")
		}
		updated = in.apply(list[i])
		list[i] = updated
		return list, nil
	})
	if err != nil {
		return Restaurant{}, err
	}
	s.opts.Logger.Info("restaurant updated", zap.String("id", updated.ID))
	return updated, nil
}

// Delete removes the record with id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperror.NewValidation("Restaurant ID is required")
	}

	err := s.mutate(ctx, "delete", "Failed to delete restaurant", func(list []Restaurant) ([]Restaurant, error) {
		kept := make([]Restaurant, 0, len(list))
		for _, r := range list {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		if len(kept) == len(list) {
			return nil, apperror.NewNotFound("Restaurant not found")
		}
		return kept, nil
	})
	if err != nil {
		return err
	}
	s.opts.Logger.Info("restaurant deleted", zap.String("id", id))
	return nil
}

func (s *Service) load(ctx context.Context) ([]Restaurant, uint64, error) {
	e, err := s.store.Get(ctx, s.opts.Key)
	if err != nil {
		return nil, 0, err
	}
	list, err := decodeCollection(e.Value)
	if err != nil {
		return nil, 0, err
	}
	return list, e.Version, nil
}

// mutate runs read, compute, write against the collection. In Optimistic
// mode the write is conditional on the version read and the whole cycle is
// retried on conflict. Errors returned by compute keep their type and message.
func (s *Service) mutate(ctx context.Context, op, failure string, compute func([]Restaurant) ([]Restaurant, error)) error {
	for attempt := 0; ; attempt++ {
		list, version, err := s.load(ctx)
		if err != nil {
			s.opts.Metrics.Mutation(op, "error")
			return apperror.NewInternal(failure, err)
		}

		next, err := compute(list)
		if err != nil {
			if apperror.IsNotFound(err) {
				s.opts.Metrics.Mutation(op, "not_found")
			}
			return apperror.Wrap(err, op)
		}

		data, err := encodeCollection(next)
		if err != nil {
			s.opts.Metrics.Mutation(op, "error")
			return apperror.NewInternal(failure, err)
		}

		if s.opts.Mode == LastWriteWins {
			err = s.store.Set(ctx, s.opts.Key, data)
		} else {
			err = s.store.CompareAndSet(ctx, s.opts.Key, data, version)
		}
		if errors.Is(err, store.ErrVersionConflict) {
			s.opts.Metrics.StoreConflict(op)
			if attempt < s.opts.MaxRetries && ctx.Err() == nil {
				s.opts.Logger.Debug("collection changed concurrently, retrying",
					zap.String("operation", op), zap.Int("attempt", attempt+1))
				continue
			}
			s.opts.Metrics.Mutation(op, "conflict")
			return apperror.NewConflict(failure, fmt.Errorf("gave up after %d attempts: %w", attempt+1, err))
		}
		if err != nil {
			s.opts.Metrics.Mutation(op, "error")
			return apperror.NewInternal(failure, err)
		}
		s.opts.Metrics.Mutation(op, "ok")
		return nil
	}
}

func (s *Service) uniqueID(list []Restaurant) string {
	for {
		id := s.opts.NewID()
		if indexOf(list, id) < 0 {
			return id
		}
	}
}

func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperror.NewValidation(describe(verrs[0]))
	}
	return apperror.NewValidation("Invalid restaurant")
}

func describe(fe validator.FieldError) string {
	switch fe.StructField() {
	case "Lat":
		return "Latitude must be between -90 and 90"
	case "Lng":
		return "Longitude must be between -180 and 180"
	case "Name":
		return "Name must not be empty"
	}
	return fmt.Sprintf("Invalid value for %s", fe.Field())
}

func indexOf(list []Restaurant, id string) int {
	for i, r := range list {
		if r.ID == id {
			return i
		}
	}
	return -1
}
