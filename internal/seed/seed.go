// Package seed loads the fixed demo dataset the store starts from.
package seed

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/Shivanand-hulikatti/campus-event-backend/internal/model"
	"github.com/Shivanand-hulikatti/campus-event-backend/internal/store"
	"gopkg.in/yaml.v3"
)

//go:embed campus.yaml
var campusYAML []byte

// Dataset is the YAML form of a seed.
type Dataset struct {
	Venues []VenueSeed `yaml:"venues"`
	Events []EventSeed `yaml:"events"`
}

type VenueSeed struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Capacity   int      `yaml:"capacity"`
	Facilities []string `yaml:"facilities"`
}

type EventSeed struct {
	ID           string   `yaml:"id"`
	Title        string   `yaml:"title"`
	Description  string   `yaml:"description"`
	Date         string   `yaml:"date"`
	Start        string   `yaml:"start"`
	End          string   `yaml:"end"`
	Venue        string   `yaml:"venue"`
	Capacity     int      `yaml:"capacity"`
	Participants []string `yaml:"participants"`
}

// Default returns the built-in campus dataset.
func Default() (*Dataset, error) {
	return Parse(campusYAML)
}

// LoadFile reads a dataset from a YAML file.
func LoadFile(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML dataset. Unknown keys are rejected.
func Parse(data []byte) (*Dataset, error) {
	var ds Dataset
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&ds); err != nil {
		return nil, fmt.Errorf("seed: parse: %w", err)
	}
	return &ds, nil
}

// Load returns the dataset at path, or the built-in one when path is empty.
func Load(path string) (*Dataset, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}

// Apply inserts the dataset into st: venues first, then events, which must
// reference known venues.
func (ds *Dataset) Apply(st *store.Store, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	for _, v := range ds.Venues {
		if err := st.AddVenue(model.Venue{
			ID:         v.ID,
			Name:       v.Name,
			Capacity:   v.Capacity,
			Facilities: v.Facilities,
		}); err != nil {
			return fmt.Errorf("seed: venue %q: %w", v.ID, err)
		}
	}
	for _, e := range ds.Events {
		starts, ends, err := e.times(loc)
		if err != nil {
			return fmt.Errorf("seed: event %q: %w", e.ID, err)
		}
		if err := st.AddEvent(model.Event{
			ID:           e.ID,
			Title:        e.Title,
			Description:  e.Description,
			StartsAt:     starts,
			EndsAt:       ends,
			Capacity:     e.Capacity,
			VenueID:      e.Venue,
			Participants: e.Participants,
		}); err != nil {
			return fmt.Errorf("seed: event %q: %w", e.ID, err)
		}
	}
	return nil
}

func (e EventSeed) times(loc *time.Location) (time.Time, time.Time, error) {
	starts, err := time.ParseInLocation("2006-01-02 15:04", e.Date+" "+e.Start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start: %w", err)
	}
	if e.End == "" {
		return starts, starts, nil
	}
	ends, err := time.ParseInLocation("2006-01-02 15:04", e.Date+" "+e.End, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end: %w", err)
	}
	if ends.Before(starts) {
		return time.Time{}, time.Time{}, fmt.Errorf("end %s is before start %s", e.End, e.Start)
	}
	return starts, ends, nil
}

// NewStore builds a store populated from ds.
func (ds *Dataset) NewStore(loc *time.Location, opts ...store.Option) (*store.Store, error) {
	st := store.New(opts...)
	if err := ds.Apply(st, loc); err != nil {
		return nil, err
	}
	return st, nil
}
