// Package policy holds the plain value objects that describe resource and
// execution constraints for the runtime. Policies are passed by value into
// the repository at construction and are never mutated afterward.
package policy

// WorkdirMode selects how a script's working directory is prepared.
type WorkdirMode string

const (
	// WorkdirSkillRoot runs the child with cwd set directly to the skill
	// directory.
	WorkdirSkillRoot WorkdirMode = "skill_root"

	// WorkdirTempdir stages a fresh temporary directory populated with
	// references/, assets/, scripts/ before exec, removed on exit.
	WorkdirTempdir WorkdirMode = "tempdir"
)

// Resource describes the limits the resource reader enforces.
type Resource struct {
	// MaxFileBytes bounds a single text file read.
	MaxFileBytes int64

	// MaxTotalBytesPerSession bounds the cumulative bytes a session may
	// read across all successful reads.
	MaxTotalBytesPerSession int64

	// AllowExtensionsText is the set of extensions (including the leading
	// dot, lowercase) the text reader will serve.
	AllowExtensionsText map[string]struct{}

	// AllowBinaryAssets gates the binary reader entirely.
	AllowBinaryAssets bool

	// BinaryMaxBytes bounds a single binary asset read. Binary reads are
	// never truncated: over this limit, the read fails outright.
	BinaryMaxBytes int64
}

// DefaultResource returns the runtime's default resource policy.
func DefaultResource() Resource {
	exts := map[string]struct{}{
		".md": {}, ".txt": {}, ".json": {}, ".yaml": {}, ".yml": {}, ".csv": {}, ".tsv": {}, ".rst": {},
	}
	return Resource{
		MaxFileBytes:            200_000,
		MaxTotalBytesPerSession: 1_000_000,
		AllowExtensionsText:     exts,
		AllowBinaryAssets:       true,
		BinaryMaxBytes:          2_000_000,
	}
}

// AllowsTextExtension reports whether ext (as returned by filepath.Ext,
// lowercased by the caller) is a member of AllowExtensionsText.
func (r Resource) AllowsTextExtension(ext string) bool {
	_, ok := r.AllowExtensionsText[ext]
	return ok
}

// Execution describes the limits the script runner enforces. Execution is
// closed by default: Enabled=false, empty allow-lists.
type Execution struct {
	Enabled bool

	// AllowSkills restricts script execution to these skill names. Empty
	// means no skill may execute scripts (even with Enabled=true).
	AllowSkills map[string]struct{}

	// AllowScriptsGlob restricts the relative script path to these glob
	// patterns ("*" within a path segment, "**" across segments).
	AllowScriptsGlob []string

	TimeoutSDefault int

	NetworkAccess bool

	// EnvAllowlist names the only environment variables forwarded from the
	// parent process into the child. No other ambient variables leak in.
	EnvAllowlist map[string]struct{}

	WorkdirMode WorkdirMode
}

// DefaultExecution returns the runtime's default execution policy: closed.
func DefaultExecution() Execution {
	return Execution{
		Enabled:          false,
		AllowSkills:      map[string]struct{}{},
		AllowScriptsGlob: nil,
		TimeoutSDefault:  60,
		NetworkAccess:    false,
		EnvAllowlist: map[string]struct{}{
			"PATH": {}, "HOME": {}, "LANG": {}, "LC_ALL": {},
		},
		WorkdirMode: WorkdirSkillRoot,
	}
}

// SkillAllowed reports whether name is in AllowSkills.
func (e Execution) SkillAllowed(name string) bool {
	_, ok := e.AllowSkills[name]
	return ok
}
