package gitbackend

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// LeaseToken identifies one successful ref-lock acquisition; it must
// be presented to RefRelease.
type LeaseToken struct {
	ref       string
	blobSHA   string
	fileLock  *flock.Flock
	lockPath  string
}

// RefLock atomically acquires a lock on ref by creating a uniquely
// named blob and pointing a ref at it with a create-only CAS
// (`update-ref <ref> <sha> <40 zeros>`), which fails fast if another
// holder already created the ref. A process-local flock pre-check
// (gofrs/flock) avoids a doomed git round-trip when a lock is already
// held within this process.
func (b *Backend) RefLock(ref string) (LeaseToken, error) {
	lockPath := filepath.Join(os.TempDir(), "gitvan-reflock-"+sanitizeRefForPath(ref)+".lock")
	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return LeaseToken{}, fmt.Errorf("gitbackend: flock %s: %w", lockPath, err)
	}
	if !locked {
		return LeaseToken{}, ErrLockContended
	}

	payload := fmt.Sprintf("gitvan-lock %s %d", uuid.NewString(), time.Now().UnixNano())
	blobSHA, err := b.hashObject(payload)
	if err != nil {
		fl.Unlock()
		return LeaseToken{}, err
	}

	zero := strings.Repeat("0", 40)
	if _, err := b.run("update-ref", ref, blobSHA, zero); err != nil {
		fl.Unlock()
		return LeaseToken{}, fmt.Errorf("%w: %v", ErrLockContended, err)
	}

	return LeaseToken{ref: ref, blobSHA: blobSHA, fileLock: fl, lockPath: lockPath}, nil
}

// RefRelease releases a lease acquired by RefLock. It is safe to call
// on every exit path, including after a timeout or panic recovery.
func (b *Backend) RefRelease(lease LeaseToken) error {
	if lease.fileLock != nil {
		defer lease.fileLock.Unlock()
	}
	if lease.ref == "" {
		return nil
	}
	_, err := b.run("update-ref", "-d", lease.ref, lease.blobSHA)
	return err
}

func (b *Backend) hashObject(content string) (string, error) {
	cmd := "hash-object"
	tmp, err := os.CreateTemp("", "gitvan-blob-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return "", err
	}
	tmp.Close()
	return b.run(cmd, "-w", tmp.Name())
}

func sanitizeRefForPath(ref string) string {
	return strings.NewReplacer("/", "-", ":", "-").Replace(ref)
}
