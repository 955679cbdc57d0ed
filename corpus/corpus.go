package corpus

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/specimen/logging"
)

// Corpus is a two-level image collection: species labels, each owning a set
// of image files
type Corpus interface {
	// Species lists the species labels in enumeration order
	Species() ([]string, error)
	// Images lists the image file names of one species
	Images(species string) ([]string, error)
	// Open opens one image for reading
	Open(species, name string) (io.ReadCloser, error)
}

// Item identifies one image of a corpus
type Item struct {
	Species string `json:"species"`
	Name    string `json:"name"`
}

// SupportedExtensions lists the file extensions treated as images
var SupportedExtensions = []string{".jpg", ".jpeg", ".png"}

// IsImage reports whether name carries a supported image extension,
// ignoring case
func IsImage(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// FSCorpus reads species directories from a file system. Immediate
// subdirectories of the root are species; any other root entry is ignored.
// A missing root or species directory enumerates as empty.
type FSCorpus struct {
	fsys   fs.FS
	root   string
	logger logging.Logger
}

// NewDirCorpus creates a corpus rooted at a directory on disk
func NewDirCorpus(root string) *FSCorpus {
	c := NewFSCorpus(os.DirFS(root))
	c.root = root
	return c
}

// NewFSCorpus creates a corpus over an arbitrary file system
func NewFSCorpus(fsys fs.FS) *FSCorpus {
	return &FSCorpus{
		fsys: fsys,
		logger: logging.WithFields(logging.Fields{
			"component": "corpus",
		}),
	}
}

// Root returns the directory the corpus was opened on, if any
func (c *FSCorpus) Root() string {
	return c.root
}

// Location returns a human readable path of an image, used in logs and reports
func (c *FSCorpus) Location(species, name string) string {
	if c.root == "" {
		return path.Join(species, name)
	}
	return filepath.Join(c.root, species, name)
}

// Species implements Corpus
func (c *FSCorpus) Species() ([]string, error) {
	entries, err := fs.ReadDir(c.fsys, ".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.logger.Debug("Corpus root does not exist", logging.Fields{"root": c.root})
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list species: %w", err)
	}

	species := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			species = append(species, entry.Name())
		}
	}
	return species, nil
}

// Images implements Corpus
func (c *FSCorpus) Images(species string) ([]string, error) {
	entries, err := fs.ReadDir(c.fsys, species)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list images of %s: %w", species, err)
	}

	images := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsImage(entry.Name()) {
			continue
		}
		images = append(images, entry.Name())
	}
	return images, nil
}

// Open implements Corpus
func (c *FSCorpus) Open(species, name string) (io.ReadCloser, error) {
	return c.fsys.Open(path.Join(species, name))
}

// List enumerates every image of a corpus, species by species
func List(c Corpus) ([]Item, error) {
	species, err := c.Species()
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(species)*8)
	for _, s := range species {
		names, err := c.Images(s)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			items = append(items, Item{Species: s, Name: name})
		}
	}
	return items, nil
}
