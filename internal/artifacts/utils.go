package artifacts

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

const fileScheme = "file://"

// URIFromPath returns the file:// URI of an absolute path.
func URIFromPath(path string) string {
	return fileScheme + filepath.ToSlash(path)
}

func PathFromURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, fileScheme) {
		return "", errors.Newf("not a file:// URI: %s", uri)
	}
	return filepath.FromSlash(strings.TrimPrefix(uri, fileScheme)), nil
}

// Describe inspects the build output at path. Directory outputs, such as
// application bundles, report their total size and carry no checksum.
func Describe(path string, kind ArtifactKind) (Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, errors.Wrapf(err, "stat artifact %s", path)
	}

	artifact := Artifact{
		Kind: kind,
		URI:  URIFromPath(path),
	}

	if info.IsDir() {
		size, err := directorySize(path)
		if err != nil {
			return Artifact{}, err
		}
		artifact.Size = size
		artifact.IsBundle = true
		return artifact, nil
	}

	checksum, err := fileChecksum(path)
	if err != nil {
		return Artifact{}, err
	}
	artifact.Size = info.Size()
	artifact.Checksum = &checksum
	return artifact, nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "open artifact %s", path)
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", errors.Wrapf(err, "hash artifact %s", path)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func directorySize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, errors.Wrapf(err, "walk artifact %s", root)
	}
	return total, nil
}
