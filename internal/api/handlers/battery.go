package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"battery-arbitrage/internal/api/models"
	"battery-arbitrage/internal/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errUnknownPreset = errors.New("unknown battery preset")

// BatteryHandler lists battery presets and resolves them for requests
type BatteryHandler struct {
	batteryDir string
	log        *zap.Logger
}

// NewBatteryHandler creates a new battery handler reading presets from dir
func NewBatteryHandler(dir string, logger *zap.Logger) *BatteryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		dir = "./examples/batteries"
	}
	if absDir, err := filepath.Abs(dir); err == nil {
		dir = absDir
	}
	logger.Info("battery presets", zap.String("dir", dir))
	return &BatteryHandler{batteryDir: dir, log: logger}
}

// Dir returns the preset directory
func (h *BatteryHandler) Dir() string {
	return h.batteryDir
}

// ListBatteries handles GET /api/v1/batteries
func (h *BatteryHandler) ListBatteries(c *gin.Context) {
	batteries := []models.BatteryInfo{}

	entries, err := os.ReadDir(h.batteryDir)
	if err != nil {
		h.log.Warn("failed to read battery directory", zap.String("dir", h.batteryDir), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"batteries": batteries})
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(h.batteryDir, entry.Name())
		b, err := config.LoadBatteryFile(path)
		if err != nil {
			h.log.Warn("skipping invalid battery file", zap.String("file", path), zap.Error(err))
			continue
		}

		// The ID is the file name without extension, e.g. "100mw_100mwh".
		id := strings.TrimSuffix(entry.Name(), ".yaml")
		name := b.Name
		if name == "" {
			name = id
		}
		batteries = append(batteries, models.BatteryInfo{ID: id, Name: name, File: path, Specs: b})
	}
	sort.Slice(batteries, func(i, j int) bool { return batteries[i].ID < batteries[j].ID })

	c.JSON(http.StatusOK, gin.H{"batteries": batteries})
}

// Resolve merges override onto the preset named id. An empty id returns
// override unchanged.
func (h *BatteryHandler) Resolve(id string, override config.BatteryConfig) (config.BatteryConfig, error) {
	if id == "" {
		return override, nil
	}
	// Presets are looked up by bare name only.
	if id != filepath.Base(id) || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return config.BatteryConfig{}, fmt.Errorf("%w: %q", errUnknownPreset, id)
	}
	path := filepath.Join(h.batteryDir, id+".yaml")
	preset, err := config.LoadBatteryFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config.BatteryConfig{}, fmt.Errorf("%w: %q", errUnknownPreset, id)
		}
		return config.BatteryConfig{}, fmt.Errorf("load battery preset %q: %w", id, err)
	}
	return config.MergeBattery(preset, override), nil
}
