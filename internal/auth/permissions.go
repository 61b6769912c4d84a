package auth

// Permission strings embedded in provider-issued tokens. Roles
// (Assistant, Director, Producer) are configured in the identity provider;
// this layer only ever inspects the resulting permission set.
const (
	PermGetActors    = "get:actors"
	PermPostActors   = "post:actors"
	PermPatchActors  = "patch:actors"
	PermDeleteActors = "delete:actors"

	PermGetMovies    = "get:movies"
	PermPostMovies   = "post:movies"
	PermPatchMovies  = "patch:movies"
	PermDeleteMovies = "delete:movies"
)
