package alarm

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ursineenterprises/koom/internal/db"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	// Validation registration only fails on an empty tag.
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := db.ParseClock(fl.Field().String())
		return err == nil
	})
	return v
}

// SaveRequest is the input to CreateOrUpdate. An empty ID creates a new
// alarm; Enabled defaults to true.
type SaveRequest struct {
	ID        string   `json:"id"`
	Time      string   `json:"time" validate:"required,clock"`
	Day       string   `json:"day" validate:"required,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	TrackIDs  []string `json:"trackIds" validate:"min=1,dive,required"`
	Recurring bool     `json:"recurring"`
	Enabled   *bool    `json:"enabled,omitempty"`
}

// RequestFromRecord builds a SaveRequest that rewrites rec unchanged.
func RequestFromRecord(rec db.AlarmRecord) SaveRequest {
	enabled := rec.Enabled
	return SaveRequest{
		ID:        rec.ID,
		Time:      rec.Time,
		Day:       rec.Day,
		TrackIDs:  append([]string(nil), rec.TrackIDs...),
		Recurring: rec.Recurring,
		Enabled:   &enabled,
	}
}

// Service is the record-level API over the store.
type Service struct {
	env *Env
}

// NewService returns a service bound to env.
func NewService(env *Env) *Service {
	return &Service{env: env}
}

// Validate checks a request without saving it.
func (s *Service) Validate(req SaveRequest) error {
	var problems []FieldError

	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate alarm: %w", err)
		}
		for _, fe := range verrs {
			problems = append(problems, fieldProblem(fe))
		}
	}

	if len(req.TrackIDs) > 0 {
		for _, id := range req.TrackIDs {
			if id == "" {
				continue
			}
			if _, ok := s.env.Catalog.ResolveSource(id); !ok {
				problems = append(problems, FieldError{
					Field:   "trackIds",
					Problem: fmt.Sprintf("track %q is not in the catalog", id),
				})
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Fields: problems}
	}
	return nil
}

func fieldProblem(fe validator.FieldError) FieldError {
	field := fe.Field()
	// Dive errors report "trackIds[0]".
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}
	switch fe.Tag() {
	case "required":
		return FieldError{Field: field, Problem: "is required"}
	case "clock":
		return FieldError{Field: field, Problem: "must be HH:MM"}
	case "oneof":
		return FieldError{Field: field, Problem: "must be a weekday"}
	case "min":
		return FieldError{Field: field, Problem: "needs at least one track"}
	default:
		return FieldError{Field: field, Problem: "failed " + fe.Tag()}
	}
}

// CreateOrUpdate validates req and saves it. The store is not touched when
// validation fails.
func (s *Service) CreateOrUpdate(ctx context.Context, req SaveRequest) (db.AlarmRecord, error) {
	if err := s.Validate(req); err != nil {
		return db.AlarmRecord{}, err
	}

	clock, _ := db.ParseClock(req.Time)
	rec := db.AlarmRecord{
		ID:        req.ID,
		Time:      clock.String(),
		Day:       req.Day,
		Enabled:   true,
		TrackIDs:  append([]string(nil), req.TrackIDs...),
		Recurring: req.Recurring,
	}
	if req.Enabled != nil {
		rec.Enabled = *req.Enabled
	}
	if rec.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return db.AlarmRecord{}, fmt.Errorf("generate alarm id: %w", err)
		}
		rec.ID = id.String()
	}

	if err := s.env.Store.SaveAlarm(ctx, rec); err != nil {
		return db.AlarmRecord{}, &StorageError{Op: "save", ID: rec.ID, Err: err}
	}

	s.env.Log.Info().
		Str("id", rec.ID).
		Str("time", rec.Time).
		Str("day", rec.Day).
		Str("track", rec.PrimaryTrack()).
		Bool("recurring", rec.Recurring).
		Msg("alarm saved")
	return rec, nil
}

// Get returns one record or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (db.AlarmRecord, error) {
	rec, err := s.env.Store.GetAlarm(ctx, id)
	if err != nil {
		return db.AlarmRecord{}, &StorageError{Op: "get", ID: id, Err: err}
	}
	if rec == nil {
		return db.AlarmRecord{}, fmt.Errorf("alarm %s: %w", id, ErrNotFound)
	}
	return *rec, nil
}

// List returns every record. Order is unspecified.
func (s *Service) List(ctx context.Context) ([]db.AlarmRecord, error) {
	recs, err := s.env.Store.GetAllAlarms(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	return recs, nil
}

// SetEnabled flips a record's enabled flag.
func (s *Service) SetEnabled(ctx context.Context, id string, enabled bool) (db.AlarmRecord, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return db.AlarmRecord{}, err
	}
	rec.Enabled = enabled
	if err := s.env.Store.SaveAlarm(ctx, rec); err != nil {
		return db.AlarmRecord{}, &StorageError{Op: "save", ID: id, Err: err}
	}
	return rec, nil
}

// Delete removes one record. Deleting a missing id is not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.env.Store.DeleteAlarm(ctx, id); err != nil {
		return &StorageError{Op: "delete", ID: id, Err: err}
	}
	s.env.Log.Info().Str("id", id).Msg("alarm deleted")
	return nil
}

// DeleteAll removes every record.
func (s *Service) DeleteAll(ctx context.Context) error {
	if err := s.env.Store.DeleteAll(ctx); err != nil {
		return &StorageError{Op: "delete all", Err: err}
	}
	s.env.Log.Info().Msg("all alarms deleted")
	return nil
}

// HasActiveAlarm reports whether any enabled record exists.
func (s *Service) HasActiveAlarm(ctx context.Context) (bool, error) {
	recs, err := s.List(ctx)
	if err != nil {
		return false, err
	}
	for _, r := range recs {
		if r.Enabled {
			return true, nil
		}
	}
	return false, nil
}
