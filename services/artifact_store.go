package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"time"

	"submission-portal-api/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// StoredArtifact locates a saved upload.
type StoredArtifact struct {
	Path string
	Size int64
	Hash string // BLAKE2b-256, hex
}

// ArtifactStore is the blob collaborator holding uploaded archives. It gives
// no transactional link to the submission store.
type ArtifactStore interface {
	Save(ctx context.Context, fileName string, r io.Reader) (*StoredArtifact, error)
	Delete(ctx context.Context, path string) error
}

// DiskArtifactStore writes uploads under root/YYYY/MM.
type DiskArtifactStore struct {
	root string
	now  func() time.Time
}

func NewDiskArtifactStore(root string) *DiskArtifactStore {
	if root == "" {
		root = "./uploads"
	}
	return &DiskArtifactStore{root: root, now: time.Now}
}

func (s *DiskArtifactStore) Root() string { return s.root }

func (s *DiskArtifactStore) Save(ctx context.Context, fileName string, r io.Reader) (*StoredArtifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.root, s.now().UTC().Format("2006/01"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	fullPath := filepath.Join(dir, storedName(fileName))
	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}

	size, sum, copyErr := copyWithDigest(ctx, f, r)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(fullPath)
		return nil, fmt.Errorf("failed to save upload: %w", err)
	}

	return &StoredArtifact{Path: fullPath, Size: size, Hash: sum}, nil
}

func (s *DiskArtifactStore) Delete(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete upload: %w", err)
	}
	return nil
}

// storedName prefixes the sanitized client name with a uuid so two teams
// uploading project.zip never collide.
func storedName(fileName string) string {
	return uuid.NewString() + "-" + utils.SafeFilename(fileName)
}

// copyWithDigest streams r into w and returns the byte count and BLAKE2b-256
// digest. ctx is checked between chunks.
func copyWithDigest(ctx context.Context, w io.Writer, r io.Reader) (int64, string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return 0, "", err
	}
	n, err := io.Copy(io.MultiWriter(w, h), &ctxReader{ctx: ctx, r: r})
	if err != nil {
		return n, "", err
	}
	return n, digestHex(h), nil
}

func digestHex(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
