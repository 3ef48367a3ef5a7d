//go:build cgo

package embeddings

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultONNXRuntimeVersion is the ONNX runtime release that the
// onnxruntime_go build pulled in by fastembed-go links against.
const DefaultONNXRuntimeVersion = "1.23.0"

// ErrUnsupportedPlatform indicates the current OS/arch is not supported.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// onnxPlatform describes the release archive and library of one OS.
type onnxPlatform struct {
	archives map[string]string // GOARCH -> archive platform name
	library  string
}

var onnxPlatforms = map[string]onnxPlatform{
	"linux": {
		archives: map[string]string{"amd64": "linux-x64", "arm64": "linux-aarch64"},
		library:  "libonnxruntime.so",
	},
	"darwin": {
		archives: map[string]string{"amd64": "osx-x86_64", "arm64": "osx-arm64"},
		library:  "libonnxruntime.dylib",
	},
}

// getPlatformArchive returns the release archive platform name for goos/goarch.
func getPlatformArchive(goos, goarch string) (string, error) {
	if archive, ok := onnxPlatforms[goos].archives[goarch]; ok {
		return archive, nil
	}
	return "", fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, goos, goarch)
}

// getLibraryName returns the shared library filename for goos.
func getLibraryName(goos string) string {
	if p, ok := onnxPlatforms[goos]; ok {
		return p.library
	}
	return "libonnxruntime.so"
}

// getONNXInstallDir returns the directory where ONNX runtime should be installed.
func getONNXInstallDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "litweaver", "lib")
}

// GetONNXLibraryPath returns the path to the ONNX runtime library.
// Checks in order:
// 1. ONNX_PATH environment variable
// 2. Managed install at ~/.config/litweaver/lib/
// Returns empty string if not found.
func GetONNXLibraryPath() string {
	// Check env var first (user override)
	if envPath := os.Getenv("ONNX_PATH"); envPath != "" {
		return envPath
	}

	// Check managed install location
	libName := getLibraryName(runtime.GOOS)
	managedPath := filepath.Join(getONNXInstallDir(), libName)
	if _, err := os.Stat(managedPath); err == nil {
		return managedPath
	}

	return ""
}

// ONNXRuntimeExists checks if ONNX runtime is available.
func ONNXRuntimeExists() bool {
	return GetONNXLibraryPath() != ""
}

const onnxReleaseURLTemplate = "https://github.com/microsoft/onnxruntime/releases/download/v%s/onnxruntime-%s-%s.tgz"

// buildDownloadURL constructs the GitHub release URL for ONNX runtime.
func buildDownloadURL(version, platform string) string {
	return fmt.Sprintf(onnxReleaseURLTemplate, version, platform, version)
}

// ONNXInstallDir returns the managed install directory, ~/.config/litweaver/lib.
func ONNXInstallDir() string {
	return getONNXInstallDir()
}

// DownloadONNXRuntime downloads ONNX runtime for the current platform.
// If version is empty, uses DefaultONNXRuntimeVersion.
func DownloadONNXRuntime(ctx context.Context, version string) error {
	if version == "" {
		version = DefaultONNXRuntimeVersion
	}

	platform, err := getPlatformArchive(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return err
	}
	return downloadONNXRuntimeFrom(ctx, buildDownloadURL(version, platform), version, platform, getONNXInstallDir())
}

// downloadONNXRuntimeFrom downloads the release archive at url into destDir.
func downloadONNXRuntimeFrom(ctx context.Context, url, version, platform, destDir string) error {
	if err := os.MkdirAll(destDir, 0700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading ONNX runtime: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	if err := extractTarGz(resp.Body, destDir, version, platform); err != nil {
		return fmt.Errorf("extracting archive: %w", err)
	}

	return nil
}

// maxLibraryFileSize bounds a single extracted file.
const maxLibraryFileSize = 512 << 20

// extractTarGz copies the entries under onnxruntime-<platform>-<version>/lib/
// into destDir, flattened. Symlinks are only recreated when they point at a
// sibling file. Fails if the main library is not among the entries.
func extractTarGz(r io.Reader, destDir, version, platform string) error {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	prefix := fmt.Sprintf("onnxruntime-%s-%s/lib/", platform, version)
	libName := getLibraryName(runtime.GOOS)
	isLib := func(name string) bool {
		return name == libName || strings.HasPrefix(name, libName+".")
	}

	found := false
	tr := tar.NewReader(gzr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading tar: %w", err)
		}

		name := strings.TrimPrefix(hdr.Name, "./")
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		filename := path.Base(name)
		dest := filepath.Join(destDir, filename)

		switch hdr.Typeflag {
		case tar.TypeReg:
			if err := writeLibraryFile(dest, tr); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if hdr.Linkname != path.Base(hdr.Linkname) {
				continue
			}
			_ = os.Remove(dest)
			if err := os.Symlink(hdr.Linkname, dest); err != nil {
				continue
			}
		default:
			continue
		}
		if isLib(filename) {
			found = true
		}
	}

	if !found {
		return fmt.Errorf("library %s not found in archive", libName)
	}
	return nil
}

// writeLibraryFile writes r to dest through a temporary file so a failed
// download never leaves a truncated library behind.
func writeLibraryFile(dest string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".onnx-*")
	if err != nil {
		return fmt.Errorf("creating file %s: %w", filepath.Base(dest), err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(r, maxLibraryFileSize+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing file %s: %w", filepath.Base(dest), err)
	}
	if n > maxLibraryFileSize {
		return fmt.Errorf("file %s exceeds %d bytes", filepath.Base(dest), maxLibraryFileSize)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

// setONNXPathEnv sets the ONNX_PATH environment variable.
// This is used by fastembed-go to locate the library.
// Separated into a function for testability.
var setONNXPathEnv = func(path string) error {
	return os.Setenv("ONNX_PATH", path)
}

// EnsureONNXRuntime ensures ONNX runtime is available, downloading if needed.
// Progress messages go to w. Returns the path to the library file.
func EnsureONNXRuntime(ctx context.Context, w io.Writer) (string, error) {
	if path := GetONNXLibraryPath(); path != "" {
		return path, nil
	}

	fmt.Fprintf(w, "ONNX runtime not found. Downloading v%s for %s/%s...\n",
		DefaultONNXRuntimeVersion, runtime.GOOS, runtime.GOARCH)

	if err := DownloadONNXRuntime(ctx, ""); err != nil {
		return "", fmt.Errorf("failed to download ONNX runtime: %w (run 'litweaver setup' or set ONNX_PATH)", err)
	}

	path := GetONNXLibraryPath()
	if path == "" {
		return "", errors.New("ONNX runtime download completed but library not found")
	}

	fmt.Fprintf(w, "Downloaded to %s\n", path)
	return path, nil
}
