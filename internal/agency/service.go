package agency

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Service defines the casting roster operations.
type Service interface {
	ListActors(ctx context.Context) ([]Actor, error)
	GetActor(ctx context.Context, id int64) (Actor, error)
	CreateActor(ctx context.Context, input ActorInput) (Actor, error)
	UpdateActor(ctx context.Context, id int64, patch ActorPatch) (Actor, error)
	DeleteActor(ctx context.Context, id int64) error

	ListMovies(ctx context.Context) ([]Movie, error)
	GetMovie(ctx context.Context, id int64) (Movie, error)
	CreateMovie(ctx context.Context, input MovieInput) (Movie, error)
	UpdateMovie(ctx context.Context, id int64, patch MoviePatch) (Movie, error)
	DeleteMovie(ctx context.Context, id int64) error
}

func (in ActorInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.Age <= 0 {
		return fmt.Errorf("%w: age must be > 0", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Gender) == "" {
		return fmt.Errorf("%w: gender is required", ErrInvalidInput)
	}
	return nil
}

func (in MovieInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.ReleaseDate.IsZero() {
		return fmt.Errorf("%w: release_date is required", ErrInvalidInput)
	}
	return nil
}

// InMemory implements Service with in-process concurrency safety. Used by
// tests and DSN-less runs; production uses the Postgres store.
type InMemory struct {
	mu     sync.RWMutex
	actors map[int64]*Actor
	movies map[int64]*Movie
	nextID int64
}

var _ Service = (*InMemory)(nil)

// NewInMemory creates an empty roster.
func NewInMemory() *InMemory {
	return &InMemory{
		actors: make(map[int64]*Actor),
		movies: make(map[int64]*Movie),
	}
}

func (s *InMemory) nextSequence() int64 {
	s.nextID++
	return s.nextID
}

func (s *InMemory) ListActors(ctx context.Context) ([]Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Actor, 0, len(s.actors))
	for _, a := range s.actors {
		out = append(out, copyActor(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) GetActor(ctx context.Context, id int64) (Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actors[id]
	if !ok {
		return Actor{}, ErrNotFound
	}
	return copyActor(a), nil
}

func (s *InMemory) CreateActor(ctx context.Context, input ActorInput) (Actor, error) {
	if err := input.validate(); err != nil {
		return Actor{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := &Actor{
		ID:     s.nextSequence(),
		Name:   input.Name,
		Age:    input.Age,
		Gender: input.Gender,
	}
	s.actors[a.ID] = a
	return copyActor(a), nil
}

func (s *InMemory) UpdateActor(ctx context.Context, id int64, patch ActorPatch) (Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actors[id]
	if !ok {
		return Actor{}, ErrNotFound
	}
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return Actor{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		a.Name = *patch.Name
	}
	if patch.Age != nil {
		if *patch.Age <= 0 {
			return Actor{}, fmt.Errorf("%w: age must be > 0", ErrInvalidInput)
		}
		a.Age = *patch.Age
	}
	if patch.Gender != nil {
		a.Gender = *patch.Gender
	}
	return copyActor(a), nil
}

func (s *InMemory) DeleteActor(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.actors[id]; !ok {
		return ErrNotFound
	}
	delete(s.actors, id)
	for _, m := range s.movies {
		m.Actors = removeActorRef(m.Actors, id)
	}
	return nil
}

func (s *InMemory) ListMovies(ctx context.Context) ([]Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Movie, 0, len(s.movies))
	for _, m := range s.movies {
		out = append(out, copyMovie(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) GetMovie(ctx context.Context, id int64) (Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.movies[id]
	if !ok {
		return Movie{}, ErrNotFound
	}
	return copyMovie(m), nil
}

func (s *InMemory) CreateMovie(ctx context.Context, input MovieInput) (Movie, error) {
	if err := input.validate(); err != nil {
		return Movie{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m := &Movie{
		ID:          s.nextSequence(),
		Title:       input.Title,
		ReleaseDate: input.ReleaseDate,
	}
	s.movies[m.ID] = m
	return copyMovie(m), nil
}

func (s *InMemory) UpdateMovie(ctx context.Context, id int64, patch MoviePatch) (Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.movies[id]
	if !ok {
		return Movie{}, ErrNotFound
	}
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return Movie{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		m.Title = *patch.Title
	}
	if patch.ReleaseDate != nil {
		m.ReleaseDate = *patch.ReleaseDate
	}
	return copyMovie(m), nil
}

func (s *InMemory) DeleteMovie(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movies[id]; !ok {
		return ErrNotFound
	}
	delete(s.movies, id)
	for _, a := range s.actors {
		a.Movies = removeMovieRef(a.Movies, id)
	}
	return nil
}

func copyActor(a *Actor) Actor {
	out := *a
	out.Movies = make([]MovieRef, len(a.Movies))
	copy(out.Movies, a.Movies)
	return out
}

func copyMovie(m *Movie) Movie {
	out := *m
	out.Actors = make([]ActorRef, len(m.Actors))
	copy(out.Actors, m.Actors)
	return out
}

func removeActorRef(refs []ActorRef, id int64) []ActorRef {
	out := refs[:0]
	for _, r := range refs {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}

func removeMovieRef(refs []MovieRef, id int64) []MovieRef {
	out := refs[:0]
	for _, r := range refs {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}
