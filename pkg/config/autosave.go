package config

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"deltacal/pkg/kinematics"
)

// Option is one key/value pair to write back to a config file.
type Option struct {
	Key, Value string
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTower(v [3]float64) string {
	return formatFloat(v[0]) + ", " + formatFloat(v[1]) + ", " + formatFloat(v[2])
}

// GeometryOptions renders p as [delta_geometry] options in the order
// LoadGeometry documents them.
func GeometryOptions(p kinematics.Params) []Option {
	return []Option{
		{"rod_length", formatFloat(p.RodLength)},
		{"radius", formatFloat(p.Radius)},
		{"height", formatFloat(p.Height)},
		{"endstop_offset", formatTower(p.EndstopOffset)},
		{"tower_offset", formatTower(p.TowerOffset)},
		{"steps_per_unit", formatTower(p.StepsPerUnit)},
		{"radius_adjust", formatTower(p.RadiusAdjust)},
		{"rod_length_adjust", formatTower(p.RodLengthAdjust)},
	}
}

// SaveGeometry writes p into the [delta_geometry] section of the file at
// path. See SaveSection.
func SaveGeometry(path string, p kinematics.Params) error {
	return SaveSection(path, GeometrySection, GeometryOptions(p))
}

// SaveSection rewrites the options of one section in the file at path,
// leaving every other line alone. Options not already present are added
// after the section's last option, and a missing section is appended. The
// previous file is kept as a timestamped backup and the new one is
// written atomically.
func SaveSection(path, section string, opts []Option) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	if err := backup(path, data); err != nil {
		return fmt.Errorf("config: failed to create backup: %w", err)
	}
	return writeAtomic(path, rewriteSection(data, section, opts))
}

func rewriteSection(data []byte, section string, opts []Option) []byte {
	pending := make(map[string]string, len(opts))
	for _, o := range opts {
		pending[strings.ToLower(o.Key)] = o.Value
	}

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	var out []string
	inSection, found := false, false
	insertAt := -1

	flushPending := func() {
		if insertAt < 0 {
			return
		}
		var add []string
		for _, o := range opts {
			if _, ok := pending[strings.ToLower(o.Key)]; ok {
				add = append(add, o.Key+": "+o.Value)
			}
		}
		out = append(out[:insertAt], append(add, out[insertAt:]...)...)
		pending = nil
		insertAt = -1
	}

	for _, raw := range lines {
		line := raw
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			if inSection {
				flushPending()
			}
			inSection = strings.TrimSpace(line[1:len(line)-1]) == section
			if inSection {
				found = true
				out = append(out, raw)
				insertAt = len(out)
				continue
			}
		} else if inSection && line != "" {
			if key, _, ok := splitOption(line); ok {
				if v, ok := pending[strings.ToLower(key)]; ok {
					raw = key + ": " + v
					delete(pending, strings.ToLower(key))
				}
			}
			out = append(out, raw)
			insertAt = len(out)
			continue
		}
		out = append(out, raw)
	}
	if inSection {
		flushPending()
	}

	if !found {
		if len(out) > 0 && strings.TrimSpace(out[len(out)-1]) != "" {
			out = append(out, "")
		}
		out = append(out, "["+section+"]")
		for _, o := range opts {
			out = append(out, o.Key+": "+o.Value)
		}
	}
	return []byte(strings.Join(out, "\n") + "\n")
}

// backup copies data to printer-20060102_150405.cfg next to path.
func backup(path string, data []byte) error {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	name := fmt.Sprintf("%s-%s%s", base, time.Now().Format("20060102_150405"), ext)
	return os.WriteFile(name, data, 0644)
}

func writeAtomic(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("config: failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("config: failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("config: failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("config: failed to rename temp file: %w", err)
	}
	return nil
}
