package gate

import (
	"errors"
	"testing"
)

func TestAdmit_Publisher(t *testing.T) {
	g := New("")
	adm, err := g.Admit("/pub/cam1", "")
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if adm.Role != RolePublisher {
		t.Errorf("role: got %q, want publisher", adm.Role)
	}
	if adm.CamID != "cam1" {
		t.Errorf("cam id: got %q, want cam1", adm.CamID)
	}
}

func TestAdmit_Viewer(t *testing.T) {
	g := New("")
	adm, err := g.Admit("/sub/front-door.2", "")
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if adm.Role != RoleViewer {
		t.Errorf("role: got %q, want viewer", adm.Role)
	}
	if adm.CamID != "front-door.2" {
		t.Errorf("cam id: got %q, want front-door.2", adm.CamID)
	}
}

func TestAdmit_RejectsUnknownPaths(t *testing.T) {
	g := New("")
	paths := []string{
		"/",
		"/pub",
		"/pub/",
		"/sub/cam1/extra",
		"/watch/cam1",
		"/pub/cam 1",
		"/pub/cam/1",
		"/sub/",
	}
	for _, p := range paths {
		if _, err := g.Admit(p, ""); !errors.Is(err, ErrNotFound) {
			t.Errorf("Admit(%q): got %v, want ErrNotFound", p, err)
		}
	}
}

func TestAdmit_RejectsInvalidIDCharacters(t *testing.T) {
	g := New("")
	if _, err := g.Admit("/sub/cam%41", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	if _, err := g.Admit("/pub/cäm", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestAdmit_KeyRequired(t *testing.T) {
	g := New("s3cret")

	if _, err := g.Admit("/sub/cam1", ""); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("missing key: got %v, want ErrUnauthorized", err)
	}
	if _, err := g.Admit("/sub/cam1", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("wrong key: got %v, want ErrUnauthorized", err)
	}
	// Comparison is case-sensitive.
	if _, err := g.Admit("/sub/cam1", "S3CRET"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("case mismatch: got %v, want ErrUnauthorized", err)
	}

	adm, err := g.Admit("/sub/cam1", "s3cret")
	if err != nil {
		t.Fatalf("correct key: %v", err)
	}
	if adm.CamID != "cam1" {
		t.Errorf("cam id: got %q, want cam1", adm.CamID)
	}
}

func TestAdmit_NoSecretSkipsKeyCheck(t *testing.T) {
	g := New("")
	if _, err := g.Admit("/pub/cam1", "anything"); err != nil {
		t.Errorf("key with no secret configured: got %v, want admit", err)
	}
}

func TestAdmit_PathCheckedBeforeKey(t *testing.T) {
	// A bad path on an authed gate is 404, not 401.
	g := New("s3cret")
	if _, err := g.Admit("/nope", "wrong"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
