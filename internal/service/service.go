package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"example.com/notepad/internal/events"
	"example.com/notepad/internal/notes"
)

const (
	MaxTitleBytes   = 1 << 10
	MaxContentBytes = 1 << 20
)

// ErrInvalid is returned for input rejected before it reaches the store.
var ErrInvalid = notes.ErrInvalid

// Publisher receives a message after every successful write.
type Publisher interface {
	Broadcast(msg events.Message)
}

// Service validates writes and announces them; reads pass straight through.
// It satisfies notes.Store, so handlers can use it in place of the store.
type Service struct {
	store notes.Store
	pub   Publisher
}

func New(store notes.Store, pub Publisher) *Service {
	return &Service{store: store, pub: pub}
}

func (s *Service) List(ctx context.Context) ([]notes.Note, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (notes.Note, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in notes.NewNote) (notes.Note, error) {
	if err := checkInput(in.Title, in.Content); err != nil {
		return notes.Note{}, err
	}
	n, err := s.store.Create(ctx, in)
	if err != nil {
		return notes.Note{}, err
	}
	s.publish(ctx, "created", n.ID)
	return n, nil
}

func (s *Service) Update(ctx context.Context, id int64, p notes.NotePatch) (notes.Note, error) {
	if err := checkInput(p.Title, p.Content); err != nil {
		return notes.Note{}, err
	}
	n, err := s.store.Update(ctx, id, p)
	if err != nil {
		return notes.Note{}, err
	}
	s.publish(ctx, "updated", n.ID)
	return n, nil
}

func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	removed, err := s.store.Delete(ctx, id)
	if err != nil || !removed {
		return removed, err
	}
	s.publish(ctx, "deleted", id)
	return true, nil
}

func (s *Service) publish(ctx context.Context, action string, id int64) {
	if s.pub == nil {
		return
	}
	s.pub.Broadcast(events.NewMessage("note", action, id, events.OriginFrom(ctx)))
}

// noteInput holds the optional fields of a create or update request.
type noteInput struct {
	Title   *string `validate:"omitempty,maxbytes=1024,utf8"`
	Content *string `validate:"omitempty,maxbytes=1048576,utf8"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= n
	})
	_ = v.RegisterValidation("utf8", func(fl validator.FieldLevel) bool {
		return utf8.ValidString(fl.Field().String())
	})
	return v
}

func checkInput(title, content *string) error {
	err := validate.Struct(noteInput{Title: title, Content: content})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	e := verrs[0]
	field := "title"
	if e.Field() == "Content" {
		field = "content"
	}
	switch e.Tag() {
	case "maxbytes":
		return fmt.Errorf("%w: %s exceeds %s bytes", ErrInvalid, field, e.Param())
	case "utf8":
		return fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalid, field)
	default:
		return fmt.Errorf("%w: %s fails %s", ErrInvalid, field, e.Tag())
	}
}
