package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"casting.org/internal/agency"
)

// Store implements agency.Service on Postgres.
type Store struct {
	db *sql.DB
}

var _ agency.Service = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle (tests use this with a mock).
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) ListActors(ctx context.Context) ([]agency.Actor, error) {
	rows, err := s.db.QueryContext(ctx, `select id, name, age, gender from actors order by id asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actors []agency.Actor
	for rows.Next() {
		var a agency.Actor
		if err := rows.Scan(&a.ID, &a.Name, &a.Age, &a.Gender); err != nil {
			return nil, err
		}
		actors = append(actors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range actors {
		refs, err := s.movieRefs(ctx, actors[i].ID)
		if err != nil {
			return nil, err
		}
		actors[i].Movies = refs
	}
	return actors, nil
}

func (s *Store) GetActor(ctx context.Context, id int64) (agency.Actor, error) {
	var a agency.Actor
	err := s.db.QueryRowContext(ctx, `select id, name, age, gender from actors where id=$1`, id).
		Scan(&a.ID, &a.Name, &a.Age, &a.Gender)
	if errors.Is(err, sql.ErrNoRows) {
		return agency.Actor{}, agency.ErrNotFound
	}
	if err != nil {
		return agency.Actor{}, err
	}
	refs, err := s.movieRefs(ctx, id)
	if err != nil {
		return agency.Actor{}, err
	}
	a.Movies = refs
	return a, nil
}

func (s *Store) CreateActor(ctx context.Context, input agency.ActorInput) (agency.Actor, error) {
	if err := validateActorInput(input); err != nil {
		return agency.Actor{}, err
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `
		insert into actors(name, age, gender)
		values ($1,$2,$3) returning id
	`, input.Name, input.Age, input.Gender).Scan(&id)
	if err != nil {
		return agency.Actor{}, err
	}
	return agency.Actor{
		ID:     id,
		Name:   input.Name,
		Age:    input.Age,
		Gender: input.Gender,
		Movies: []agency.MovieRef{},
	}, nil
}

func (s *Store) UpdateActor(ctx context.Context, id int64, patch agency.ActorPatch) (agency.Actor, error) {
	if patch.Name != nil && *patch.Name == "" {
		return agency.Actor{}, fmt.Errorf("%w: name is required", agency.ErrInvalidInput)
	}
	if patch.Age != nil && *patch.Age <= 0 {
		return agency.Actor{}, fmt.Errorf("%w: age must be > 0", agency.ErrInvalidInput)
	}
	var a agency.Actor
	err := s.db.QueryRowContext(ctx, `
		update actors set
			name   = coalesce($2, name),
			age    = coalesce($3, age),
			gender = coalesce($4, gender)
		where id=$1
		returning id, name, age, gender
	`, id, patch.Name, patch.Age, patch.Gender).Scan(&a.ID, &a.Name, &a.Age, &a.Gender)
	if errors.Is(err, sql.ErrNoRows) {
		return agency.Actor{}, agency.ErrNotFound
	}
	if err != nil {
		return agency.Actor{}, err
	}
	refs, err := s.movieRefs(ctx, id)
	if err != nil {
		return agency.Actor{}, err
	}
	a.Movies = refs
	return a, nil
}

func (s *Store) DeleteActor(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from actors where id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return agency.ErrNotFound
	}
	return nil
}

func (s *Store) ListMovies(ctx context.Context) ([]agency.Movie, error) {
	rows, err := s.db.QueryContext(ctx, `select id, title, release_date from movies order by id asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movies []agency.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range movies {
		refs, err := s.actorRefs(ctx, movies[i].ID)
		if err != nil {
			return nil, err
		}
		movies[i].Actors = refs
	}
	return movies, nil
}

func (s *Store) GetMovie(ctx context.Context, id int64) (agency.Movie, error) {
	row := s.db.QueryRowContext(ctx, `select id, title, release_date from movies where id=$1`, id)
	m, err := scanMovie(row)
	if errors.Is(err, sql.ErrNoRows) {
		return agency.Movie{}, agency.ErrNotFound
	}
	if err != nil {
		return agency.Movie{}, err
	}
	refs, err := s.actorRefs(ctx, id)
	if err != nil {
		return agency.Movie{}, err
	}
	m.Actors = refs
	return m, nil
}

func (s *Store) CreateMovie(ctx context.Context, input agency.MovieInput) (agency.Movie, error) {
	if err := validateMovieInput(input); err != nil {
		return agency.Movie{}, err
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `
		insert into movies(title, release_date)
		values ($1,$2) returning id
	`, input.Title, input.ReleaseDate.Time).Scan(&id)
	if err != nil {
		return agency.Movie{}, err
	}
	return agency.Movie{
		ID:          id,
		Title:       input.Title,
		ReleaseDate: input.ReleaseDate,
		Actors:      []agency.ActorRef{},
	}, nil
}

func (s *Store) UpdateMovie(ctx context.Context, id int64, patch agency.MoviePatch) (agency.Movie, error) {
	if patch.Title != nil && *patch.Title == "" {
		return agency.Movie{}, fmt.Errorf("%w: title is required", agency.ErrInvalidInput)
	}
	var release *time.Time
	if patch.ReleaseDate != nil {
		release = &patch.ReleaseDate.Time
	}
	row := s.db.QueryRowContext(ctx, `
		update movies set
			title        = coalesce($2, title),
			release_date = coalesce($3, release_date)
		where id=$1
		returning id, title, release_date
	`, id, patch.Title, release)
	m, err := scanMovie(row)
	if errors.Is(err, sql.ErrNoRows) {
		return agency.Movie{}, agency.ErrNotFound
	}
	if err != nil {
		return agency.Movie{}, err
	}
	refs, err := s.actorRefs(ctx, id)
	if err != nil {
		return agency.Movie{}, err
	}
	m.Actors = refs
	return m, nil
}

func (s *Store) DeleteMovie(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from movies where id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return agency.ErrNotFound
	}
	return nil
}

// --- helpers ---

func (s *Store) movieRefs(ctx context.Context, actorID int64) ([]agency.MovieRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		select m.id, m.title
		from movies m
		join actor_movie am on am.movie_id = m.id
		where am.actor_id = $1
		order by m.id asc
	`, actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := []agency.MovieRef{}
	for rows.Next() {
		var r agency.MovieRef
		if err := rows.Scan(&r.ID, &r.Title); err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

func (s *Store) actorRefs(ctx context.Context, movieID int64) ([]agency.ActorRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		select a.id, a.name
		from actors a
		join actor_movie am on am.actor_id = a.id
		where am.movie_id = $1
		order by a.id asc
	`, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := []agency.ActorRef{}
	for rows.Next() {
		var r agency.ActorRef
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovie(row rowScanner) (agency.Movie, error) {
	var m agency.Movie
	var release time.Time
	if err := row.Scan(&m.ID, &m.Title, &release); err != nil {
		return agency.Movie{}, err
	}
	m.ReleaseDate = agency.NewDate(release)
	return m, nil
}

func validateActorInput(in agency.ActorInput) error {
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", agency.ErrInvalidInput)
	}
	if in.Age <= 0 {
		return fmt.Errorf("%w: age must be > 0", agency.ErrInvalidInput)
	}
	if in.Gender == "" {
		return fmt.Errorf("%w: gender is required", agency.ErrInvalidInput)
	}
	return nil
}

func validateMovieInput(in agency.MovieInput) error {
	if in.Title == "" {
		return fmt.Errorf("%w: title is required", agency.ErrInvalidInput)
	}
	if in.ReleaseDate.IsZero() {
		return fmt.Errorf("%w: release_date is required", agency.ErrInvalidInput)
	}
	return nil
}
