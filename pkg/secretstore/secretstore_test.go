package secretstore

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(OpenOptions{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(OpenOptions{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestSetGetRoundtrip(t *testing.T) {
	s := openTestStore(t)

	if err := s.SetString(WellKnownAPIKey, "sekrit"); err != nil {
		t.Fatalf("SetString: %v", err)
	}

	got, found, err := s.GetString(WellKnownAPIKey)
	if err != nil {
		t.Fatalf("GetString: %v", err)
	}
	if !found || got != "sekrit" {
		t.Fatalf("GetString = (%q, %v), want (sekrit, true)", got, found)
	}

	_, found, err = s.GetString("missing")
	if err != nil {
		t.Fatalf("GetString missing: %v", err)
	}
	if found {
		t.Fatal("missing key reported as found")
	}
}

func TestEmptyValueIsFound(t *testing.T) {
	s := openTestStore(t)

	if err := s.SetString("blank", ""); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	got, found, err := s.GetString("blank")
	if err != nil {
		t.Fatalf("GetString: %v", err)
	}
	if !found || got != "" {
		t.Fatalf("GetString = (%q, %v), want (\"\", true)", got, found)
	}
}

func TestDeleteAndKeys(t *testing.T) {
	s := openTestStore(t)

	for _, k := range []string{"fills_api_key", "fills_backup_key", "other"} {
		if err := s.SetString(k, "v"); err != nil {
			t.Fatalf("SetString %s: %v", k, err)
		}
	}

	keys, err := s.Keys("fills_")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("Keys(fills_) = %v, want 2 entries", keys)
	}

	if err := s.Delete("fills_backup_key"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, found, err := s.GetString("fills_backup_key")
	if err != nil {
		t.Fatalf("GetString after delete: %v", err)
	}
	if found {
		t.Fatal("deleted key still found")
	}
}

func TestParseKey(t *testing.T) {
	raw := bytes.Repeat([]byte{0xab}, 32)
	hex64 := strings.Repeat("ab", 32)

	tests := []struct {
		name    string
		in      string
		want    []byte
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"hex", hex64, raw, false},
		{"hex 0x prefix", "0x" + hex64, raw, false},
		{"base64", base64.StdEncoding.EncodeToString(raw), raw, false},
		{"hex wrong length", "abcd", nil, true},
		{"garbage", "not-a-key!!", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKey(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseKey: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Fatalf("ParseKey = %x, want %x", got, tt.want)
			}
		})
	}
}
