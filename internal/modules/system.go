package modules

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/itchyny/volume-go"
	"github.com/kbinani/screenshot"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/MockingJay1710/buddyai/internal/command"
)

// System provides host-information and control commands.
type System struct{}

func NewSystem() *System { return &System{} }

func (*System) Name() string { return "system" }

type diskInput struct {
	Path string `json:"path" desc:"File system path to check, e.g. \"/\" or \"D:\\\\\"." default:"/"`
}

type volumeInput struct {
	Level int `json:"level" desc:"Desired master volume level, 0 (mute) to 100 (max)."`
}

type screenshotInput struct {
	OutputPath string `json:"output_path" desc:"File path where the screenshot is saved." default:"screenshot.png"`
}

type loadResult struct {
	Status        string  `json:"status"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryTotalGB float64 `json:"memory_total_gb"`
	MemoryUsedGB  float64 `json:"memory_used_gb"`
}

type diskResult struct {
	Status      string  `json:"status"`
	PathChecked string  `json:"path_checked"`
	TotalGB     float64 `json:"total_gb"`
	UsedGB      float64 `json:"used_gb"`
	FreeGB      float64 `json:"free_gb"`
	PercentUsed float64 `json:"percent_used"`
}

type volumeResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type screenshotResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

func (*System) Commands() []command.Spec {
	return []command.Spec{
		command.New("sys_get_load", "Returns current CPU and memory load percentages.", getLoad),
		command.New("sys_get_disk", "Returns total, used, and free disk space for a path.", getDisk),
		command.New("sys_set_volume", "Sets the system master volume to a percentage between 0 and 100.", setVolume),
		command.New("sys_take_screenshot", "Captures the primary display and saves it as a PNG file.", takeScreenshot),
	}
}

func getLoad(ctx context.Context, _ struct{}) (any, error) {
	percents, err := cpu.PercentWithContext(ctx, time.Second, false)
	if err != nil || len(percents) == 0 {
		return nil, fmt.Errorf("read cpu load: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("read memory stats: %w", err)
	}
	const gb = 1 << 30
	return loadResult{
		Status:        "success",
		CPUPercent:    round2(percents[0]),
		MemoryPercent: round2(vm.UsedPercent),
		MemoryTotalGB: round2(float64(vm.Total) / gb),
		MemoryUsedGB:  round2(float64(vm.Used) / gb),
	}, nil
}

func getDisk(ctx context.Context, in diskInput) (any, error) {
	path := normalizeDiskPath(in.Path, runtime.GOOS)
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("disk usage for %q: %w", path, err)
	}
	const gb = 1 << 30
	return diskResult{
		Status:      "success",
		PathChecked: path,
		TotalGB:     round2(float64(usage.Total) / gb),
		UsedGB:      round2(float64(usage.Used) / gb),
		FreeGB:      round2(float64(usage.Free) / gb),
		PercentUsed: round2(usage.UsedPercent),
	}, nil
}

// normalizeDiskPath adjusts Unix-style defaults for Windows: "/" means
// the system drive, and a bare drive letter gets its root appended.
func normalizeDiskPath(path, goos string) string {
	if goos != "windows" {
		return path
	}
	if path == "/" {
		return `C:\`
	}
	if len(path) == 1 && isDriveLetter(path[0]) {
		return strings.ToUpper(path) + `:\`
	}
	if len(path) == 2 && isDriveLetter(path[0]) && path[1] == ':' {
		return strings.ToUpper(path[:1]) + `:\`
	}
	return path
}

func isDriveLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func setVolume(_ context.Context, in volumeInput) (any, error) {
	if in.Level < 0 || in.Level > 100 {
		return nil, fmt.Errorf("volume level must be between 0 and 100, got %d", in.Level)
	}
	if err := volume.SetVolume(in.Level); err != nil {
		return nil, fmt.Errorf("set volume to %d%%: %w", in.Level, err)
	}
	return volumeResult{
		Status:  "success",
		Message: fmt.Sprintf("Volume set to %d%%.", in.Level),
	}, nil
}

func takeScreenshot(_ context.Context, in screenshotInput) (any, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return nil, fmt.Errorf("no active display")
	}

	path := normalizeImagePath(in.OutputPath)
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve output path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	img, err := screenshot.CaptureDisplay(0)
	if err != nil {
		return nil, fmt.Errorf("capture display: %w", err)
	}

	f, err := os.Create(abs)
	if err != nil {
		return nil, fmt.Errorf("create %q: %w", abs, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	return screenshotResult{
		Status:  "success",
		Message: fmt.Sprintf("Screenshot saved to %q.", abs),
		Path:    abs,
	}, nil
}

// normalizeImagePath forces a .png extension; the capture is always
// encoded as PNG.
func normalizeImagePath(path string) string {
	if path == "" {
		path = "screenshot.png"
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".png" {
		path = strings.TrimSuffix(path, filepath.Ext(path)) + ".png"
	}
	return path
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
