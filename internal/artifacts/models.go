package artifacts

type ArtifactKind string

const (
	BuildArtifact ArtifactKind = "build" // Output produced by the build backend
)

type Artifact struct {
	Kind ArtifactKind
	URI  string

	Checksum *string
	Size     int64
	IsBundle bool
}
