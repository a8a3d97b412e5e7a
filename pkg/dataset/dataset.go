// Package dataset provides access to demo datasets. Datasets are fetched
// as zip archives, extracted into a local cache and read through the
// bulk image reader.
package dataset

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"pvimage/pkg/imgio"
	"pvimage/pkg/imgseq"
)

// ErrUnknownDataset is returned when a dataset name is neither built in
// nor configured through the environment.
var ErrUnknownDataset = errors.New("unknown dataset")

// EnvDatasets names additional datasets as a ;-separated list of
// name=url pairs.
const EnvDatasets = "PVIMAGE_DATASETS"

// Poly10x6Name is the public demo set of 10x6 poly module images.
const Poly10x6Name = "20191219_poly10x6"

// CaipName is the private dataset from "Fast and robust detection of
// solar modules in electroluminescence images" (Hoffmann et al., CAIP
// 2019). Access requires naming its URL in PVIMAGE_DATASETS.
const CaipName = "20200114_caip"

// builtin maps well-known dataset names to their archive URLs.
var builtin = map[string]string{
	Poly10x6Name: "https://drive.google.com/uc?export=download&id=1B5fQPLvStuMvuYJ5CxbzyxfwuWQdfNVE",
}

// Registry resolves dataset names to archive URLs and keeps extracted
// datasets in a local cache.
type Registry struct {
	cacheDir string
}

// NewRegistry creates a registry caching datasets under cacheDir. An
// empty cacheDir places the cache inside the user cache directory.
func NewRegistry(cacheDir string) *Registry {
	return &Registry{cacheDir: cacheDir}
}

// resolveURL returns the archive URL for name, consulting the built-in
// datasets first and the PVIMAGE_DATASETS environment variable second.
func resolveURL(name string) (string, error) {
	if url, ok := builtin[name]; ok {
		return url, nil
	}
	for _, entry := range strings.Split(os.Getenv(EnvDatasets), ";") {
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) == 2 && parts[0] == name {
			return parts[1], nil
		}
	}
	return "", fmt.Errorf("%w: %q is neither built in nor named in %s", ErrUnknownDataset, name, EnvDatasets)
}

// dir returns the cache directory holding the named dataset.
func (r *Registry) dir(name string) (string, error) {
	base := r.cacheDir
	if base == "" {
		userCache, err := os.UserCacheDir()
		if err != nil {
			return "", fmt.Errorf("failed to locate cache directory: %w", err)
		}
		base = filepath.Join(userCache, "pvimage", "datasets")
	}
	return filepath.Join(base, name), nil
}

// Fetch makes sure the named dataset is available locally and returns
// its directory. The archive is downloaded and extracted on first use;
// later calls hit the cache.
func (r *Registry) Fetch(name string) (string, error) {
	dir, err := r.dir(name)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir, nil
	}

	url, err := resolveURL(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create dataset directory: %w", err)
	}

	archivePath := filepath.Join(dir, "data.zip")
	if err := download(url, archivePath); err != nil {
		os.RemoveAll(dir) // a half-made cache entry would satisfy the next Stat
		return "", err
	}
	if err := extractZip(archivePath, dir); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	return dir, nil
}

// download saves the body of url to target.
func download(url, target string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to download dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download dataset: %s returned %s", url, resp.Status)
	}

	file, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create dataset archive: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return fmt.Errorf("failed to write dataset archive: %w", err)
	}
	return nil
}

// extractZip unpacks the archive into targetDir. Entries that would
// escape the target directory are rejected.
func extractZip(archivePath, targetDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open dataset archive: %w", err)
	}
	defer reader.Close()

	root := filepath.Clean(targetDir) + string(os.PathSeparator)
	for _, entry := range reader.File {
		path := filepath.Join(targetDir, entry.Name)
		if !strings.HasPrefix(path, root) {
			return fmt.Errorf("archive entry %q escapes the dataset directory", entry.Name)
		}
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(path, 0755); err != nil {
				return fmt.Errorf("failed to extract %s: %w", entry.Name, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to extract %s: %w", entry.Name, err)
		}
		if err := extractFile(entry, path); err != nil {
			return fmt.Errorf("failed to extract %s: %w", entry.Name, err)
		}
	}
	return nil
}

// extractFile writes a single archive entry to path.
func extractFile(entry *zip.File, path string) error {
	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// Poly10x6 reads the demo sequence of 10x6 poly modules from the default
// cache. n limits the read to the first n images; 0 reads all of them.
func Poly10x6(n int) (*imgseq.ModuleImageSequence, error) {
	return NewRegistry("").Poly10x6(n)
}

// Poly10x6 reads the demo sequence of 10x6 poly modules. n limits the
// read to the first n images; 0 reads all of them.
func (r *Registry) Poly10x6(n int) (*imgseq.ModuleImageSequence, error) {
	dir, err := r.Fetch(Poly10x6Name)
	if err != nil {
		return nil, err
	}
	return imgio.ReadModuleImages(dir, imgio.ReadOptions{
		Modality:   imgseq.ModalityEL,
		SameCamera: true,
		Cols:       10,
		Rows:       6,
		N:          n,
	})
}

// CaipDataB reads the CAIP test sets of 10x6 and 9x4 modules.
func (r *Registry) CaipDataB() (*imgseq.ModuleImageSequence, *imgseq.ModuleImageSequence, error) {
	dir, err := r.Fetch(CaipName)
	if err != nil {
		return nil, nil, err
	}
	tenBySix, err := imgio.ReadModuleImages(filepath.Join(dir, "deitsch_testset", "10x6"), imgio.ReadOptions{
		Modality:             imgseq.ModalityEL,
		Cols:                 10,
		Rows:                 6,
		AllowDifferentDTypes: true,
	})
	if err != nil {
		return nil, nil, err
	}
	nineByFour, err := imgio.ReadModuleImages(filepath.Join(dir, "deitsch_testset", "9x4"), imgio.ReadOptions{
		Modality:             imgseq.ModalityEL,
		Cols:                 9,
		Rows:                 4,
		AllowDifferentDTypes: true,
	})
	if err != nil {
		return nil, nil, err
	}
	return tenBySix, nineByFour, nil
}

// CaipDataC reads the CAIP set of complete 10x6 modules.
func (r *Registry) CaipDataC() (*imgseq.ModuleImageSequence, error) {
	dir, err := r.Fetch(CaipName)
	if err != nil {
		return nil, err
	}
	return imgio.ReadModuleImages(filepath.Join(dir, "multiple"), imgio.ReadOptions{
		Modality:   imgseq.ModalityEL,
		SameCamera: true,
		Cols:       10,
		Rows:       6,
	})
}

// CaipDataD reads the CAIP set of rotated 10x6 modules.
func (r *Registry) CaipDataD() (*imgseq.ModuleImageSequence, error) {
	dir, err := r.Fetch(CaipName)
	if err != nil {
		return nil, err
	}
	return imgio.ReadModuleImages(filepath.Join(dir, "rotated"), imgio.ReadOptions{
		Modality:   imgseq.ModalityEL,
		SameCamera: true,
		Cols:       10,
		Rows:       6,
	})
}
