package wizard

import (
	"testing"

	"github.com/imamik/fwupgrade/internal/config"
)

func TestBuildConfig(t *testing.T) {
	result := &WizardResult{
		Topology:  "pair",
		Addresses: []string{" 10.0.0.1 ", "10.0.0.2"},
		Username:  "admin",
		Source:    "images/asa962-smp-k8.bin",
		Location:  "disk0:",
		RateLimit: "10MB",
		Reclaim:   []string{"asa931-smp-k8.bin"},
	}

	cfg := BuildConfig(result)

	if cfg.Topology != "pair" {
		t.Errorf("Topology = %q, want %q", cfg.Topology, "pair")
	}
	if len(cfg.Devices) != 2 {
		t.Fatalf("Devices length = %d, want 2", len(cfg.Devices))
	}
	if cfg.Devices[0].Address != "10.0.0.1" {
		t.Errorf("Devices[0].Address = %q, want %q", cfg.Devices[0].Address, "10.0.0.1")
	}
	if cfg.Devices[1].Port != 22 {
		t.Errorf("Devices[1].Port = %d, want 22", cfg.Devices[1].Port)
	}
	if cfg.Image.Destination != "asa962-smp-k8.bin" {
		t.Errorf("Image.Destination = %q, want %q", cfg.Image.Destination, "asa962-smp-k8.bin")
	}
	if cfg.Transfer.RateLimit != "10MB" {
		t.Errorf("Transfer.RateLimit = %q, want %q", cfg.Transfer.RateLimit, "10MB")
	}
	if len(cfg.Reclaim.Delete) != 1 || cfg.Reclaim.Delete[0] != "asa931-smp-k8.bin" {
		t.Errorf("Reclaim.Delete = %v, want [asa931-smp-k8.bin]", cfg.Reclaim.Delete)
	}
	if cfg.Password != "" {
		t.Error("Password should never be set by the wizard")
	}

	cfg.Password = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("BuildConfig produced an invalid config: %v", err)
	}
}

func TestBuildConfig_Standalone(t *testing.T) {
	cfg := BuildConfig(&WizardResult{
		Addresses: []string{"fw01"},
		Username:  "admin",
		Source:    "asa.bin",
	})

	if cfg.Topology != "standalone" {
		t.Errorf("Topology = %q, want %q", cfg.Topology, "standalone")
	}
	if cfg.Image.Location != "disk0:" {
		t.Errorf("Image.Location = %q, want %q", cfg.Image.Location, "disk0:")
	}
	if cfg.Reclaim.Delete != nil {
		t.Errorf("Reclaim.Delete = %v, want nil", cfg.Reclaim.Delete)
	}
}

func TestSeedResult(t *testing.T) {
	if r := seedResult(nil); r.Topology != "" || r.Addresses != nil {
		t.Errorf("seedResult(nil) = %+v, want empty", r)
	}

	cfg := &config.Config{
		Topology: "pair",
		Devices:  []config.Device{{Address: "a"}, {Address: "b"}},
		Username: "admin",
		Password: "secret",
		Image:    config.ImageConfig{Source: "s3://b/k.bin", Destination: "k.bin", Location: "disk1:"},
		Reclaim:  config.ReclaimConfig{Delete: []string{"old.bin"}},
	}
	r := seedResult(cfg)

	if len(r.Addresses) != 2 || r.Addresses[1] != "b" {
		t.Errorf("Addresses = %v, want [a b]", r.Addresses)
	}
	if r.Location != "disk1:" {
		t.Errorf("Location = %q, want %q", r.Location, "disk1:")
	}
	if len(r.Reclaim) != 1 || r.Reclaim[0] != "old.bin" {
		t.Errorf("Reclaim = %v, want [old.bin]", r.Reclaim)
	}

	r.Reclaim[0] = "changed"
	if cfg.Reclaim.Delete[0] != "old.bin" {
		t.Error("seedResult should copy the reclaim list")
	}
}

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"10.0.0.1", false},
		{"fw01.example.net", false},
		{"2001:db8::1", false},
		{"", true},
		{"   ", true},
		{"fw 01", true},
		{"10.0.0.1/24", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := validateAddress(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAddress(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateDistinct(t *testing.T) {
	if err := validateDistinct([]string{"a", "b"}); err != nil {
		t.Errorf("distinct addresses rejected: %v", err)
	}
	if err := validateDistinct([]string{"FW01", "fw01 "}); err != errDuplicateAddress {
		t.Errorf("validateDistinct() error = %v, want %v", err, errDuplicateAddress)
	}
	if err := validateDistinct([]string{"a"}); err != nil {
		t.Errorf("single address rejected: %v", err)
	}
}

func TestValidateDestination(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"asa962-smp-k8.bin", false},
		{"", true},
		{"images/asa.bin", true},
		{"disk0:asa.bin", true},
		{"asa 962.bin", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := validateDestination(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateDestination(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRateLimit(t *testing.T) {
	for _, ok := range []string{"", "10MB", "512KiB", "1000"} {
		if err := validateRateLimit(ok); err != nil {
			t.Errorf("validateRateLimit(%q) = %v, want nil", ok, err)
		}
	}
	if err := validateRateLimit("fast"); err != errRateLimitInvalid {
		t.Errorf("validateRateLimit(fast) = %v, want %v", err, errRateLimitInvalid)
	}
}

func TestValidateReclaim(t *testing.T) {
	if err := validateReclaim("a.bin, b.bin"); err != nil {
		t.Errorf("validateReclaim() = %v, want nil", err)
	}
	if err := validateReclaim("a.bin, dir/b.bin"); err != errReclaimNameInvalid {
		t.Errorf("validateReclaim() = %v, want %v", err, errReclaimNameInvalid)
	}
}

func TestSimpleValidators(t *testing.T) {
	if validateUsername(" ") != errUsernameRequired {
		t.Error("blank username accepted")
	}
	if validatePassword("") != errPasswordRequired {
		t.Error("empty password accepted")
	}
	if validateSource("") != errSourceRequired {
		t.Error("empty source accepted")
	}
	if validateSource("asa.bin") != nil {
		t.Error("valid source rejected")
	}
}

func TestParseList(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", []string{}},
		{"a.bin", []string{"a.bin"}},
		{" a.bin , ,b.bin ", []string{"a.bin", "b.bin"}},
	}

	for _, tt := range tests {
		got := parseList(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("parseList(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseList(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
			}
		}
	}
}

func TestDefaultDestination(t *testing.T) {
	tests := map[string]string{
		"asa.bin":                 "asa.bin",
		"./images/asa.bin":        "asa.bin",
		"s3://bucket/asa/asa.bin": "asa.bin",
		`C:\images\asa.bin`:       "asa.bin",
	}
	for in, want := range tests {
		if got := defaultDestination(in); got != want {
			t.Errorf("defaultDestination(%q) = %q, want %q", in, got, want)
		}
	}
}
