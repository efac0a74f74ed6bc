package modules

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/MockingJay1710/buddyai/internal/command"
)

const (
	maxReadBytes     = 1 << 20 // 1MB
	maxSearchResults = 500
)

// FS provides file-system commands.
type FS struct{}

func NewFS() *FS { return &FS{} }

func (*FS) Name() string { return "fs" }

type createFileInput struct {
	Path    string `json:"path" desc:"Full path, including filename, where the file is created. Existing files are overwritten."`
	Content string `json:"content" desc:"Initial text content for the file." default:""`
}

type readFileInput struct {
	Path string `json:"path" desc:"Full path to the file to read."`
}

type deleteInput struct {
	Path string `json:"path" desc:"Full path to the file or directory to delete. Directories are removed with their contents."`
}

type moveInput struct {
	SourcePath      string `json:"source_path" desc:"Current path of the file or directory."`
	DestinationPath string `json:"destination_path" desc:"New path or name for the file or directory."`
}

type searchFilesInput struct {
	Directory      string `json:"directory" desc:"Directory to start the search from."`
	FilePattern    string `json:"file_pattern" desc:"Glob-style pattern for file names, e.g. \"*.txt\"."`
	ContentPattern string `json:"content_pattern" desc:"Substring to search for inside matching files. Empty matches on name only." default:""`
	Recursive      bool   `json:"recursive" desc:"Include subdirectories in the search." default:"true"`
}

type fileOpResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type readFileResult struct {
	Status  string `json:"status"`
	Content string `json:"content"`
	Size    int64  `json:"size"`
}

type searchFilesResult struct {
	Status     string   `json:"status"`
	FoundFiles []string `json:"found_files"`
	Count      int      `json:"count"`
}

func (*FS) Commands() []command.Spec {
	return []command.Spec{
		command.New("fs_create_file", "Creates a file with optional initial content, overwriting any existing file.", createFile),
		command.New("fs_read_file", "Reads the entire content of a text file.", readFile),
		command.New("fs_delete", "Deletes a file or an entire directory including its contents.", deletePath),
		command.New("fs_move", "Moves or renames a file or directory.", movePath),
		command.New("fs_search_files", "Searches a directory for files matching a name pattern, optionally filtered by content.", searchFiles),
	}
}

func createFile(_ context.Context, in createFileInput) (any, error) {
	path, err := filepath.Abs(in.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create parent directory: %w", err)
	}

	// Atomic write: temp file then rename.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(in.Content), 0o644); err != nil {
		return nil, fmt.Errorf("write %q: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("rename into place: %w", err)
	}
	return fileOpResult{Status: "success", Message: fmt.Sprintf("File %q created successfully.", path)}, nil
}

func readFile(_ context.Context, in readFileInput) (any, error) {
	info, err := os.Stat(in.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file %q not found", in.Path)
		}
		return nil, fmt.Errorf("stat %q: %w", in.Path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path %q is a directory, not a file", in.Path)
	}
	if info.Size() > maxReadBytes {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), maxReadBytes)
	}

	data, err := os.ReadFile(in.Path)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", in.Path, err)
	}
	return readFileResult{Status: "success", Content: string(data), Size: info.Size()}, nil
}

func deletePath(_ context.Context, in deleteInput) (any, error) {
	info, err := os.Lstat(in.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("path %q not found", in.Path)
		}
		return nil, fmt.Errorf("stat %q: %w", in.Path, err)
	}

	if info.IsDir() {
		if err := os.RemoveAll(in.Path); err != nil {
			return nil, fmt.Errorf("delete directory %q: %w", in.Path, err)
		}
		return fileOpResult{Status: "success", Message: fmt.Sprintf("Directory %q and its contents deleted successfully.", in.Path)}, nil
	}
	if err := os.Remove(in.Path); err != nil {
		return nil, fmt.Errorf("delete %q: %w", in.Path, err)
	}
	return fileOpResult{Status: "success", Message: fmt.Sprintf("File %q deleted successfully.", in.Path)}, nil
}

func movePath(_ context.Context, in moveInput) (any, error) {
	if _, err := os.Stat(in.SourcePath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("source path %q not found", in.SourcePath)
		}
		return nil, fmt.Errorf("stat %q: %w", in.SourcePath, err)
	}

	dest := in.DestinationPath
	// Moving into an existing directory keeps the source's base name.
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		dest = filepath.Join(dest, filepath.Base(in.SourcePath))
	}
	if err := os.Rename(in.SourcePath, dest); err != nil {
		return nil, fmt.Errorf("move %q to %q: %w", in.SourcePath, dest, err)
	}
	return fileOpResult{Status: "success", Message: fmt.Sprintf("Moved %q to %q successfully.", in.SourcePath, dest)}, nil
}

func searchFiles(ctx context.Context, in searchFilesInput) (any, error) {
	info, err := os.Stat(in.Directory)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("directory %q not found", in.Directory)
	}
	if _, err := filepath.Match(in.FilePattern, "probe"); err != nil {
		return nil, fmt.Errorf("bad file pattern %q: %w", in.FilePattern, err)
	}

	var found []string
	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if !in.Recursive && path != in.Directory {
				return fs.SkipDir
			}
			return nil
		}
		ok, _ := filepath.Match(in.FilePattern, d.Name())
		if !ok {
			return nil
		}
		if in.ContentPattern != "" && !fileContains(path, in.ContentPattern) {
			return nil
		}
		found = append(found, path)
		if len(found) >= maxSearchResults {
			return fs.SkipAll
		}
		return nil
	}
	if err := filepath.WalkDir(in.Directory, walk); err != nil {
		return nil, fmt.Errorf("search %q: %w", in.Directory, err)
	}
	if found == nil {
		found = []string{}
	}
	return searchFilesResult{Status: "success", FoundFiles: found, Count: len(found)}, nil
}

func fileContains(path, pattern string) bool {
	info, err := os.Stat(path)
	if err != nil || info.Size() > maxReadBytes {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return strings.Contains(string(data), pattern)
}
