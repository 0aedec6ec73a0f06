package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"deltacal/pkg/errors"
)

const printerCfg = `
# Rostock style delta
[delta_geometry]
rod_length: 330
radius = 165
height: 300          # to the nozzle
steps_per_unit: 400
endstop_offset: 0.5, 0, 1.25
tower_offset: 0.1, -0.2, 0

[calibration]
factors: endstop_offset, radius, rod_length_adjust_a
perturbation: 0.1
max_stall: 10
speculative: radius; endstop_offset,radius ;;
`

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadString(t *testing.T) {
	cfg, err := LoadString(printerCfg)
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}

	if diff := cmp.Diff([]string{"delta_geometry", "calibration"}, cfg.GetSectionNames()); diff != "" {
		t.Errorf("section names (-want +got):\n%s", diff)
	}
	if cfg.HasSection("simulation") {
		t.Error("unexpected [simulation] section")
	}

	sec, err := cfg.GetSection("delta_geometry")
	if err != nil {
		t.Fatalf("GetSection: %v", err)
	}
	if sec.GetName() != "delta_geometry" {
		t.Errorf("name = %q", sec.GetName())
	}

	tests := []struct {
		option string
		want   float64
	}{
		{"rod_length", 330},
		{"RADIUS", 165},
		{"height", 300},
	}
	for _, tt := range tests {
		got, err := sec.GetFloat(tt.option)
		if err != nil {
			t.Errorf("GetFloat(%s): %v", tt.option, err)
			continue
		}
		if got != tt.want {
			t.Errorf("GetFloat(%s) = %g, want %g", tt.option, got, tt.want)
		}
	}
}

func TestParseEdgeCases(t *testing.T) {
	cfg, err := LoadString(`
orphan: 1
[a]
key = x:y
url: http://host
not an option
[b]
[a]
extra: 2
`)
	if err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	a, _ := cfg.GetSection("a")
	if v, _ := a.Get("key"); v != "x:y" {
		t.Errorf("key = %q, want x:y", v)
	}
	if v, _ := a.Get("url"); v != "http://host" {
		t.Errorf("url = %q", v)
	}
	if v, _ := a.GetInt("extra"); v != 2 {
		t.Errorf("repeated section not merged, extra = %d", v)
	}
	if !cfg.HasSection("b") {
		t.Error("empty section dropped")
	}

	if _, err := LoadString("[ ]\n"); err == nil {
		t.Error("expected an error for an empty header")
	}
	if _, err := LoadString("[include other.cfg]\n"); err == nil {
		t.Error("expected an error for an include in a string config")
	}
}

func TestLoadIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "geometry.cfg", "[delta_geometry]\nrod_length: 331\n")
	writeFile(t, dir, "extra-1.cfg", "[simulation]\npoints: 12\n")
	writeFile(t, dir, "extra-2.cfg", "[simulation]\nprobe_radius: 90\n")
	main := writeFile(t, dir, "printer.cfg", `
[include geometry.cfg]
[include extra-*.cfg]
[include missing-*.cfg]
[delta_geometry]
radius: 166
`)

	cfg, err := Load(main)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	geo, _ := cfg.GetSection("delta_geometry")
	if v, _ := geo.GetFloat("rod_length"); v != 331 {
		t.Errorf("included rod_length = %g", v)
	}
	if v, _ := geo.GetFloat("radius"); v != 166 {
		t.Errorf("radius = %g", v)
	}
	sim, _ := cfg.GetSection("simulation")
	if v, _ := sim.GetInt("points"); v != 12 {
		t.Errorf("points = %d", v)
	}
	if v, _ := sim.GetFloat("probe_radius"); v != 90 {
		t.Errorf("probe_radius = %g", v)
	}
}

func TestLoadIncludeErrors(t *testing.T) {
	dir := t.TempDir()
	loop := writeFile(t, dir, "loop.cfg", "[include loop.cfg]\n")
	if _, err := Load(loop); err == nil || !strings.Contains(err.Error(), "recursive include") {
		t.Errorf("recursive include error = %v", err)
	}

	missing := writeFile(t, dir, "missing.cfg", "[include nothere.cfg]\n")
	if _, err := Load(missing); err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("missing include error = %v", err)
	}

	if _, err := Load(filepath.Join(dir, "absent.cfg")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestAccessTracking(t *testing.T) {
	cfg, err := LoadString(`
[used]
read: 1
defaulted_elsewhere: 2
[unused]
x: 1
`)
	if err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	sec, _ := cfg.GetSection("used")
	sec.GetInt("read")
	sec.GetInt("absent", 5)

	if diff := cmp.Diff([]string{"defaulted_elsewhere"}, sec.GetUnusedOptions()); diff != "" {
		t.Errorf("unused options (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"unused"}, cfg.GetUnusedSections()); diff != "" {
		t.Errorf("unused sections (-want +got):\n%s", diff)
	}

	err = cfg.CheckUnused()
	if err == nil {
		t.Fatal("expected CheckUnused to report leftovers")
	}
	for _, want := range []string{"unused sections [unused]", "[used]: unused options [defaulted_elsewhere]"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("CheckUnused() = %q, missing %q", err, want)
		}
	}

	sec.Get("defaulted_elsewhere")
	if u, _ := cfg.GetSection("unused"); u != nil {
		u.Get("x")
	}
	if err := cfg.CheckUnused(); err != nil {
		t.Errorf("CheckUnused after reading everything: %v", err)
	}
}

func TestSectionGetters(t *testing.T) {
	cfg, _ := LoadString(`
[test]
str: hello
int: 42
bad_int: 4.2
float: 3.5
yes: on
no: 0
maybe: perhaps
list: a, b,, c
floats: 1, 2.5, -3
bad_floats: 1, x
mode: Linear
`)
	sec, _ := cfg.GetSection("test")

	if v, err := sec.Get("str"); err != nil || v != "hello" {
		t.Errorf("Get(str) = %q, %v", v, err)
	}
	if v, err := sec.Get("none", "fallback"); err != nil || v != "fallback" {
		t.Errorf("Get fallback = %q, %v", v, err)
	}
	if v, err := sec.GetInt("int"); err != nil || v != 42 {
		t.Errorf("GetInt = %d, %v", v, err)
	}
	if _, err := sec.GetInt("bad_int"); err == nil {
		t.Error("expected an error for a non-integer")
	}
	if v, err := sec.GetFloat("float"); err != nil || v != 3.5 {
		t.Errorf("GetFloat = %g, %v", v, err)
	}
	if v, err := sec.GetBool("yes"); err != nil || !v {
		t.Errorf("GetBool(yes) = %v, %v", v, err)
	}
	if v, err := sec.GetBool("no"); err != nil || v {
		t.Errorf("GetBool(no) = %v, %v", v, err)
	}
	if _, err := sec.GetBool("maybe"); err == nil {
		t.Error("expected an error for a non-boolean")
	}
	if v, err := sec.GetList("list", ","); err != nil || !cmp.Equal(v, []string{"a", "b", "c"}) {
		t.Errorf("GetList = %v, %v", v, err)
	}
	if v, err := sec.GetFloatList("floats", ","); err != nil || !cmp.Equal(v, []float64{1, 2.5, -3}) {
		t.Errorf("GetFloatList = %v, %v", v, err)
	}
	if _, err := sec.GetFloatList("bad_floats", ","); err == nil {
		t.Error("expected an error for a bad float list")
	}
	if v, err := sec.GetChoice("mode", []string{"linear", "cubic"}); err != nil || v != "linear" {
		t.Errorf("GetChoice = %q, %v", v, err)
	}
	if _, err := sec.GetChoice("str", []string{"linear"}); err == nil {
		t.Error("expected an error for an invalid choice")
	}
}

func TestTowerFloats(t *testing.T) {
	cfg, _ := LoadString(`
[t]
one: 400
three: 1, 2, 3
two: 1, 2
bad: 1, b, 3
`)
	sec, _ := cfg.GetSection("t")

	tests := []struct {
		option  string
		want    [3]float64
		wantErr bool
	}{
		{option: "one", want: [3]float64{400, 400, 400}},
		{option: "three", want: [3]float64{1, 2, 3}},
		{option: "missing_with_fallback", want: [3]float64{7, 8, 9}},
		{option: "two", wantErr: true},
		{option: "bad", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.option, func(t *testing.T) {
			got, err := sec.GetTowerFloats(tt.option, [3]float64{7, 8, 9})
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
	if _, err := sec.GetTowerFloats("missing"); err == nil {
		t.Error("expected an error for a missing option without fallback")
	}
}

func TestBoundsChecking(t *testing.T) {
	cfg, _ := LoadString(`
[b]
zero: 0
neg: -1
five: 5
`)
	sec, _ := cfg.GetSection("b")
	one, ten := 1, 10

	tests := []struct {
		name    string
		get     func() error
		wantErr bool
	}{
		{"above ok", func() error { _, err := sec.GetFloatWithBounds("five", Above(0)); return err }, false},
		{"above fails", func() error { _, err := sec.GetFloatWithBounds("zero", Above(0)); return err }, true},
		{"at least ok", func() error { _, err := sec.GetFloatWithBounds("zero", AtLeast(0)); return err }, false},
		{"at least fails", func() error { _, err := sec.GetFloatWithBounds("neg", AtLeast(0)); return err }, true},
		{"below fails", func() error {
			b := 5.0
			_, err := sec.GetFloatWithBounds("five", FloatBounds{Below: &b})
			return err
		}, true},
		{"int in range", func() error { _, err := sec.GetIntWithBounds("five", &one, &ten); return err }, false},
		{"int too small", func() error { _, err := sec.GetIntWithBounds("zero", &one, nil); return err }, true},
		{"int fallback checked", func() error { _, err := sec.GetIntWithBounds("none", &one, nil, 0); return err }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.get()
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestErrorCodes(t *testing.T) {
	cfg, _ := LoadString("[s]\nx: nope\n")

	_, err := cfg.GetSection("missing")
	if !errors.Is(err, errors.ErrConfigSection) {
		t.Errorf("missing section code = %q", errors.CodeOf(err))
	}
	if err.Error() != "Section 'missing': section not found" {
		t.Errorf("message = %q", err)
	}

	sec, _ := cfg.GetSection("s")
	_, err = sec.GetFloat("y")
	if !errors.Is(err, errors.ErrConfigOption) {
		t.Errorf("missing option code = %q", errors.CodeOf(err))
	}
	if err.Error() != "Option 'y' in section 's': must be specified" {
		t.Errorf("message = %q", err)
	}

	_, err = sec.GetFloat("x")
	if !errors.IsConfig(err) || !errors.Is(err, errors.ErrConfigValidation) {
		t.Errorf("invalid value error = %v", err)
	}
}

func TestCheckUnusedOptions(t *testing.T) {
	cfg, _ := LoadString("[a]\nx: 1\ny: 2\n[b]\nz: 3\n")
	if err := cfg.CheckUnusedOptions(); err != nil {
		t.Errorf("nothing read yet, got %v", err)
	}
	a, _ := cfg.GetSection("a")
	a.Get("x")
	err := cfg.CheckUnusedOptions()
	if err == nil || err.Error() != "[a]: unused options [y]" {
		t.Errorf("CheckUnusedOptions() = %v", err)
	}
}
