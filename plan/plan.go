package plan

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultShell        = "/usr/sbin/nologin"
	DefaultNamingSchema = "auto-%Y%m%d-%H%M"
)

type Defaults struct {
	Pool  string `yaml:"pool"`
	Shell string `yaml:"shell"`
}

type Group struct {
	Name        string `yaml:"name" validate:"required"`
	GID         int    `yaml:"gid" validate:"required,gt=0"`
	Description string `yaml:"description"`
}

type Service struct {
	Name      string `yaml:"name" validate:"required"`
	UID       int    `yaml:"uid" validate:"required,gt=0"`
	Group     string `yaml:"group" validate:"required"`
	Home      string `yaml:"home" validate:"required,startswith=/"`
	Shell     string `yaml:"shell"`
	Dataset   string `yaml:"dataset"`
	Recursive bool   `yaml:"recursive"`
	Comment   string `yaml:"comment"`
}

type Dataset struct {
	Name        string `yaml:"name" validate:"required"`
	Recordsize  string `yaml:"recordsize" validate:"omitempty,oneof=16K 32K 64K 128K 512K 1M"`
	Compression string `yaml:"compression" validate:"omitempty,oneof=lz4 zstd off"`
	Quota       string `yaml:"quota"`
	Atime       bool   `yaml:"atime"`
	Exec        bool   `yaml:"exec"`
	Comments    string `yaml:"comments"`
}

// Mountpoint returns where SCALE mounts the dataset.
func (d Dataset) Mountpoint() string {
	return "/mnt/" + d.Name
}

type Retention struct {
	Value int    `yaml:"value" validate:"required,gt=0"`
	Unit  string `yaml:"unit" validate:"required,oneof=HOUR DAY WEEK MONTH"`
}

type SnapshotTask struct {
	Dataset      string    `yaml:"dataset" validate:"required"`
	Frequency    string    `yaml:"frequency" validate:"omitempty,oneof=15min hourly 4h daily weekly"`
	Schedule     string    `yaml:"schedule"`
	Retention    Retention `yaml:"retention"`
	NamingSchema string    `yaml:"naming_schema"`
	Recursive    bool      `yaml:"recursive"`
}

type Tunable struct {
	Var     string `yaml:"var" validate:"required"`
	Value   string `yaml:"value" validate:"required"`
	Type    string `yaml:"type" validate:"required,oneof=SYSCTL ZFS"`
	Comment string `yaml:"comment"`
	Enabled *bool  `yaml:"enabled"`
}

// IsEnabled defaults to true when the plan does not say otherwise.
func (t Tunable) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

type Plan struct {
	Defaults  Defaults       `yaml:"defaults"`
	Groups    []Group        `yaml:"groups" validate:"min=1,dive"`
	Services  []Service      `yaml:"services" validate:"dive"`
	Datasets  []Dataset      `yaml:"datasets" validate:"dive"`
	Snapshots []SnapshotTask `yaml:"snapshots" validate:"dive"`
	Tunables  []Tunable      `yaml:"tunables" validate:"dive"`
}

// Load reads, defaults and validates a plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse is Load without the file read, used by tests and the embedded seed.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}
	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Plan) applyDefaults() {
	if p.Defaults.Shell == "" {
		p.Defaults.Shell = DefaultShell
	}
	for i := range p.Services {
		if p.Services[i].Shell == "" {
			p.Services[i].Shell = p.Defaults.Shell
		}
	}
	for i := range p.Snapshots {
		if p.Snapshots[i].NamingSchema == "" {
			p.Snapshots[i].NamingSchema = DefaultNamingSchema
		}
	}
}

// Validate runs the struct tag checks plus the cross row invariants the
// tables have to hold: unique uid/gid/dataset/home, resolvable refs and
// parseable schedules.
func (p *Plan) Validate() error {
	if err := validator.New().Struct(p); err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	groupByName := map[string]Group{}
	gids := map[int]string{}
	for _, g := range p.Groups {
		if prev, ok := gids[g.GID]; ok {
			return fmt.Errorf("plan: gid %d used by both %q and %q", g.GID, prev, g.Name)
		}
		gids[g.GID] = g.Name
		if _, ok := groupByName[g.Name]; ok {
			return fmt.Errorf("plan: duplicate group %q", g.Name)
		}
		groupByName[g.Name] = g
	}

	datasetByName := map[string]Dataset{}
	for _, d := range p.Datasets {
		if _, ok := datasetByName[d.Name]; ok {
			return fmt.Errorf("plan: duplicate dataset %q", d.Name)
		}
		if strings.HasPrefix(d.Name, "/") {
			return fmt.Errorf("plan: dataset %q must be pool relative (no leading /)", d.Name)
		}
		datasetByName[d.Name] = d
	}

	uids := map[int]string{}
	homes := map[string]string{}
	names := map[string]bool{}
	for _, s := range p.Services {
		if prev, ok := uids[s.UID]; ok {
			return fmt.Errorf("plan: uid %d used by both %q and %q", s.UID, prev, s.Name)
		}
		uids[s.UID] = s.Name
		if names[s.Name] {
			return fmt.Errorf("plan: duplicate service %q", s.Name)
		}
		names[s.Name] = true
		if prev, ok := homes[s.Home]; ok {
			return fmt.Errorf("plan: home %q used by both %q and %q", s.Home, prev, s.Name)
		}
		homes[s.Home] = s.Name
		if _, ok := groupByName[s.Group]; !ok {
			return fmt.Errorf("plan: service %q references unknown group %q", s.Name, s.Group)
		}
		if s.Dataset != "" {
			ds, ok := datasetByName[s.Dataset]
			if !ok {
				return fmt.Errorf("plan: service %q references unknown dataset %q", s.Name, s.Dataset)
			}
			if s.Home != ds.Mountpoint() && !strings.HasPrefix(s.Home, ds.Mountpoint()+"/") {
				return fmt.Errorf("plan: service %q home %q is not under dataset mountpoint %q", s.Name, s.Home, ds.Mountpoint())
			}
		}
	}

	for _, t := range p.Snapshots {
		if _, ok := datasetByName[t.Dataset]; !ok {
			return fmt.Errorf("plan: snapshot task references unknown dataset %q", t.Dataset)
		}
		if t.Frequency == "" && t.Schedule == "" {
			return fmt.Errorf("plan: snapshot task for %q needs a frequency or a schedule", t.Dataset)
		}
		if _, err := t.CronSchedule(); err != nil {
			return fmt.Errorf("plan: snapshot task for %q: %w", t.Dataset, err)
		}
	}

	tvars := map[string]bool{}
	for _, t := range p.Tunables {
		key := t.Type + "/" + t.Var
		if tvars[key] {
			return fmt.Errorf("plan: duplicate tunable %q", t.Var)
		}
		tvars[key] = true
	}

	return nil
}

// GroupFor resolves a service's group row. Validate guarantees it exists.
func (p *Plan) GroupFor(s Service) Group {
	for _, g := range p.Groups {
		if g.Name == s.Group {
			return g
		}
	}
	return Group{}
}

// DatasetByName returns the dataset row, or false when the plan has none.
func (p *Plan) DatasetByName(name string) (Dataset, bool) {
	for _, d := range p.Datasets {
		if d.Name == name {
			return d, true
		}
	}
	return Dataset{}, false
}
