package pgpcert

import (
	"fmt"
	"os"
)

// Merge merges the certificates at paths into one and writes the
// canonical result to outPath, armored or binary.
func (a *App) Merge(outPath string, paths []string, armored bool) error {
	if len(paths) == 0 {
		return fmt.Errorf("no input certificates")
	}

	cert, err := a.loadCert(paths[0])
	if err != nil {
		return fmt.Errorf("while loading %v: %w", paths[0], err)
	}
	for _, path := range paths[1:] {
		other, err := a.loadCert(path)
		if err != nil {
			return fmt.Errorf("while loading %v: %w", path, err)
		}
		if cert, err = cert.MergePublicAndSecret(other); err != nil {
			return fmt.Errorf("while merging %v: %w", path, err)
		}
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if armored {
		err = cert.SerializeArmored(f)
	} else {
		err = cert.Serialize(f)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("while writing %v: %w", outPath, err)
	}
	return f.Close()
}
