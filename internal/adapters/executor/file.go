package executor

import (
	"fmt"
	"os"
	"path/filepath"
)

const scriptFileMode = 0o600

// FileWriter はスクリプトをファイルに書き出します。既存ファイルは上書きされ、権限は所有者のみに絞られます。
type FileWriter struct{}

// Write は content を path に書き出します。
func (FileWriter) Write(path, content string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("executor: create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(content), scriptFileMode); err != nil {
		return fmt.Errorf("executor: write %s: %w", path, err)
	}
	// WriteFile は既存ファイルの権限を変更しないため明示的に絞ります。
	if err := os.Chmod(path, scriptFileMode); err != nil {
		return fmt.Errorf("executor: chmod %s: %w", path, err)
	}
	return nil
}
