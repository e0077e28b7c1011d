package attach

import (
	"fmt"
	"strings"
	"testing"
)

func png(name string, size int64, modified int64) File {
	return File{Name: name, Size: size, LastModified: modified, ContentType: "image/png"}
}

func TestStage(t *testing.T) {
	t.Run("accepts valid files", func(t *testing.T) {
		accepted, rej := Stage([]File{png("a.png", 100, 1), png("b.png", 200, 2)}, nil)
		if len(accepted) != 2 {
			t.Errorf("accepted = %d, want 2", len(accepted))
		}
		if rej.Total() != 0 {
			t.Errorf("rejections = %+v, want none", rej)
		}
	})

	t.Run("rejects disallowed content type", func(t *testing.T) {
		gif := File{Name: "x.gif", Size: 10, ContentType: "image/gif"}
		accepted, rej := Stage([]File{gif}, nil)
		if len(accepted) != 0 || rej.Type != 1 {
			t.Errorf("accepted = %d, rej = %+v", len(accepted), rej)
		}
	})

	t.Run("rejects oversized file", func(t *testing.T) {
		big := png("big.png", MaxSize+1, 1)
		accepted, rej := Stage([]File{big}, nil)
		if len(accepted) != 0 || rej.Size != 1 {
			t.Errorf("accepted = %d, rej = %+v", len(accepted), rej)
		}
	})

	t.Run("cap of 3 with overLimit count", func(t *testing.T) {
		var candidates []File
		for i := 0; i < 4; i++ {
			candidates = append(candidates, png(fmt.Sprintf("f%d.png", i), int64(100+i), int64(i)))
		}
		accepted, rej := Stage(candidates, nil)
		if len(accepted) != 3 {
			t.Errorf("accepted = %d, want 3", len(accepted))
		}
		if rej.OverLimit != 1 {
			t.Errorf("overLimit = %d, want 1", rej.OverLimit)
		}
	})

	t.Run("cap counts already-staged files", func(t *testing.T) {
		staged := []File{png("s1.png", 1, 1), png("s2.png", 2, 2)}
		accepted, rej := Stage([]File{png("c1.png", 3, 3), png("c2.png", 4, 4)}, staged)
		if len(accepted) != 1 || rej.OverLimit != 1 {
			t.Errorf("accepted = %d, rej = %+v", len(accepted), rej)
		}
	})

	t.Run("duplicates are skipped silently", func(t *testing.T) {
		f := png("dup.png", 100, 42)
		accepted, rej := Stage([]File{f, f}, nil)
		if len(accepted) != 1 {
			t.Errorf("accepted = %d, want 1", len(accepted))
		}
		if rej.Total() != 0 {
			t.Errorf("rejections = %+v, want none", rej)
		}
	})

	t.Run("duplicate against staged is skipped", func(t *testing.T) {
		f := png("dup.png", 100, 42)
		accepted, rej := Stage([]File{f}, []File{f})
		if len(accepted) != 0 || rej.Total() != 0 {
			t.Errorf("accepted = %d, rej = %+v", len(accepted), rej)
		}
	})

	t.Run("same name different timestamp is not a duplicate", func(t *testing.T) {
		accepted, _ := Stage([]File{png("a.png", 100, 1), png("a.png", 100, 2)}, nil)
		if len(accepted) != 2 {
			t.Errorf("accepted = %d, want 2", len(accepted))
		}
	})
}

func TestMerge(t *testing.T) {
	staged := []File{png("a.png", 1, 1), png("b.png", 2, 2)}
	accepted := []File{png("c.png", 3, 3), png("d.png", 4, 4)}

	merged := Merge(staged, accepted)
	if len(merged) != MaxCount {
		t.Errorf("merged = %d, want %d", len(merged), MaxCount)
	}
	if merged[2].Name != "c.png" {
		t.Errorf("merged[2] = %q, want c.png", merged[2].Name)
	}
}

func TestRejections_Notice(t *testing.T) {
	if notice := (Rejections{}).Notice(); notice != "" {
		t.Errorf("empty rejections notice = %q, want empty", notice)
	}

	notice := (Rejections{Type: 2, OverLimit: 1}).Notice()
	if !strings.Contains(notice, "형식 제외 2개") || !strings.Contains(notice, "초과 1개") {
		t.Errorf("notice = %q", notice)
	}
}

func TestPreviews(t *testing.T) {
	p := NewPreviews()
	f := png("a.png", 100, 1)

	url := p.Create(f)
	if !strings.HasPrefix(url, PreviewScheme) {
		t.Errorf("url = %q, want %q prefix", url, PreviewScheme)
	}
	if p.Active() != 1 {
		t.Errorf("Active() = %d, want 1", p.Active())
	}

	got, ok := p.Get(url)
	if !ok || got.Name != "a.png" {
		t.Errorf("Get() = %+v, %v", got, ok)
	}

	if !p.Release(url) {
		t.Error("first Release() = false, want true")
	}
	if p.Release(url) {
		t.Error("second Release() = true, want false")
	}
	if p.Active() != 0 {
		t.Errorf("Active() = %d, want 0", p.Active())
	}

	// Distinct URLs for files with the same name.
	u1 := p.Create(f)
	u2 := p.Create(f)
	if u1 == u2 {
		t.Errorf("duplicate urls: %q", u1)
	}
}
