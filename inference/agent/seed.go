package agent

import (
	"io"
	"os"
	"path/filepath"

	"github.com/erayyap/scriptbench/log"
	"github.com/erayyap/scriptbench/types"
)

// SeedAssets copies every entry in assets from assetsRoot into the
// sandbox, validating each one first: it must resolve inside assetsRoot
// (no `..` escape), must exist, and must match the expected type (file
// vs folder). A failing entry is logged and skipped, never fatal.
func SeedAssets(sandbox *Sandbox, assetsRoot string, assets []types.AgentAsset, logger *log.Logger) {
	for _, asset := range assets {
		src := filepath.Join(assetsRoot, asset.Path)
		resolvedRoot, err := filepath.Abs(assetsRoot)
		if err != nil {
			logger.Warn("agent asset: could not resolve assets root", map[string]any{"path": asset.Path, "error": err.Error()})
			continue
		}
		resolvedSrc, err := filepath.Abs(src)
		if err != nil || !withinRoot(resolvedRoot, resolvedSrc) {
			logger.Warn("agent asset escapes assets root, skipping", map[string]any{"path": asset.Path})
			continue
		}

		info, err := os.Stat(resolvedSrc)
		if err != nil {
			logger.Warn("agent asset does not exist, skipping", map[string]any{"path": asset.Path, "error": err.Error()})
			continue
		}
		if info.IsDir() != asset.IsDir {
			logger.Warn("agent asset type mismatch, skipping", map[string]any{"path": asset.Path, "expected_dir": asset.IsDir, "is_dir": info.IsDir()})
			continue
		}

		dst := filepath.Join(sandbox.Root, filepath.Base(asset.Path))
		var copyErr error
		if info.IsDir() {
			copyErr = copyTree(resolvedSrc, dst)
		} else {
			copyErr = copyFile(resolvedSrc, dst)
		}
		if copyErr != nil {
			logger.Warn("agent asset copy failed, skipping", map[string]any{"path": asset.Path, "error": copyErr.Error()})
		}
	}
}

func withinRoot(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	return rel != ".." && !hasDotDotPrefix(rel)
}

func hasDotDotPrefix(rel string) bool {
	return len(rel) >= 2 && rel[0] == '.' && rel[1] == '.' && (len(rel) == 2 || os.IsPathSeparator(rel[2]))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}
