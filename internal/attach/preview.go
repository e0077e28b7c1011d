package attach

import (
	"fmt"
	"sync"
)

// PreviewScheme prefixes every locally allocated preview URL.
const PreviewScheme = "local-preview://"

// Previews allocates revocable local preview URLs for staged files, standing
// in for browser object URLs. Every created preview must be released exactly
// once — at the earliest of "permanent URL available" or "message discarded"
// — or the backing data leaks for the life of the registry.
type Previews struct {
	mu    sync.Mutex
	next  int
	files map[string]File
}

// NewPreviews creates an empty preview registry.
func NewPreviews() *Previews {
	return &Previews{files: make(map[string]File)}
}

// Create registers f and returns its local preview URL.
func (p *Previews) Create(f File) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	url := fmt.Sprintf("%s%d/%s", PreviewScheme, p.next, f.Name)
	p.next++
	p.files[url] = f
	return url
}

// Get returns the file backing a preview URL.
func (p *Previews) Get(url string) (File, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, ok := p.files[url]
	return f, ok
}

// Release revokes a preview URL. Returns false if the URL was never created
// or was already released; a second release is a caller bug but harmless.
func (p *Previews) Release(url string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.files[url]; !ok {
		return false
	}
	delete(p.files, url)
	return true
}

// Active returns the number of unreleased previews.
func (p *Previews) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.files)
}
