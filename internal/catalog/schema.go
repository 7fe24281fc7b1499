package catalog

const (
	createArtifacts = `CREATE TABLE artifacts (
    artifact_id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    human_id TEXT,
    slug TEXT NOT NULL,
    path TEXT NOT NULL,
    title TEXT NOT NULL,
    owner TEXT,
    parent_id TEXT,
    created_at TEXT NOT NULL,
    created_ms INTEGER NOT NULL
);`

	idxArtifactsKind    = `CREATE INDEX idx_artifacts_kind ON artifacts(kind, created_ms);`
	idxArtifactsParent  = `CREATE INDEX idx_artifacts_parent ON artifacts(parent_id);`
	idxArtifactsOwner   = `CREATE INDEX idx_artifacts_owner ON artifacts(owner);`
	idxArtifactsCreated = `CREATE INDEX idx_artifacts_created ON artifacts(created_ms, artifact_id);`
)

var schemaDDL = []string{
	createArtifacts,
	idxArtifactsKind,
	idxArtifactsParent,
	idxArtifactsOwner,
	idxArtifactsCreated,
}

var artifactColumns = []string{
	"artifact_id", "kind", "human_id", "slug", "path", "title",
	"owner", "parent_id", "created_at", "created_ms",
}
