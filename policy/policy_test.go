package policy

import "testing"

func TestDefaultResource_AllowsTextExtension(t *testing.T) {
	t.Parallel()
	p := DefaultResource()
	for _, ext := range []string{".md", ".txt", ".json", ".yaml", ".yml", ".csv", ".tsv", ".rst"} {
		if !p.AllowsTextExtension(ext) {
			t.Errorf("expected %q to be allowed by default", ext)
		}
	}
	if p.AllowsTextExtension(".exe") {
		t.Errorf("expected .exe to be rejected by default")
	}
}

func TestDefaultExecution_ClosedByDefault(t *testing.T) {
	t.Parallel()
	p := DefaultExecution()
	if p.Enabled {
		t.Fatalf("expected execution to be disabled by default")
	}
	if p.SkillAllowed("anything") {
		t.Fatalf("expected an empty AllowSkills set to allow no skill")
	}
	if p.WorkdirMode != WorkdirSkillRoot {
		t.Fatalf("got WorkdirMode %s, want skill_root", p.WorkdirMode)
	}
}

func TestExecution_SkillAllowed(t *testing.T) {
	t.Parallel()
	p := DefaultExecution()
	p.AllowSkills = map[string]struct{}{"pdf-fill": {}}
	if !p.SkillAllowed("pdf-fill") {
		t.Fatalf("expected pdf-fill to be allowed")
	}
	if p.SkillAllowed("other") {
		t.Fatalf("expected other to be rejected")
	}
}
