package agency

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInMemoryActorLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemory()

	actor, err := svc.CreateActor(ctx, ActorInput{Name: "Zendaya", Age: 25, Gender: "female"})
	if err != nil {
		t.Fatalf("CreateActor: %v", err)
	}
	if actor.ID == 0 {
		t.Fatal("expected assigned id")
	}

	name := "Zendaya Coleman"
	age := 26
	updated, err := svc.UpdateActor(ctx, actor.ID, ActorPatch{Name: &name, Age: &age})
	if err != nil {
		t.Fatalf("UpdateActor: %v", err)
	}
	if updated.Name != name || updated.Age != age || updated.Gender != "female" {
		t.Fatalf("unexpected patch result: %+v", updated)
	}

	list, err := svc.ListActors(ctx)
	if err != nil {
		t.Fatalf("ListActors: %v", err)
	}
	if len(list) != 1 || list[0].ID != actor.ID {
		t.Fatalf("unexpected list: %+v", list)
	}

	if err := svc.DeleteActor(ctx, actor.ID); err != nil {
		t.Fatalf("DeleteActor: %v", err)
	}
	if _, err := svc.GetActor(ctx, actor.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetActor after delete = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteActor(ctx, actor.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete = %v, want ErrNotFound", err)
	}
}

func TestInMemoryMovieLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemory()

	release, err := ParseDate("2021-10-22")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	movie, err := svc.CreateMovie(ctx, MovieInput{Title: "Dune", ReleaseDate: release})
	if err != nil {
		t.Fatalf("CreateMovie: %v", err)
	}
	if movie.ReleaseDate.String() != "2021-10-22" {
		t.Fatalf("unexpected release date: %s", movie.ReleaseDate)
	}

	title := "Dune: Part One"
	updated, err := svc.UpdateMovie(ctx, movie.ID, MoviePatch{Title: &title})
	if err != nil {
		t.Fatalf("UpdateMovie: %v", err)
	}
	if updated.Title != title {
		t.Fatalf("unexpected title: %s", updated.Title)
	}

	if err := svc.DeleteMovie(ctx, movie.ID); err != nil {
		t.Fatalf("DeleteMovie: %v", err)
	}
	if _, err := svc.GetMovie(ctx, movie.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetMovie after delete = %v, want ErrNotFound", err)
	}
}

func TestInMemoryValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemory()

	if _, err := svc.CreateActor(ctx, ActorInput{Name: "", Age: 30, Gender: "male"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing name = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.CreateActor(ctx, ActorInput{Name: "X", Age: 0, Gender: "male"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero age = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.CreateMovie(ctx, MovieInput{Title: ""}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing title = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.UpdateActor(ctx, 99, ActorPatch{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("patch missing actor = %v, want ErrNotFound", err)
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(time.Date(2021, 10, 22, 15, 4, 5, 0, time.UTC))
	raw, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(raw) != `"2021-10-22"` {
		t.Fatalf("unexpected encoding: %s", raw)
	}
	var back Date
	if err := back.UnmarshalJSON(raw); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if !back.Equal(time.Date(2021, 10, 22, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("round trip mismatch: %v", back)
	}
}
