package plan

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Source defines how the plan catalog is loaded into services.
type Source interface {
	Load(ctx context.Context) (*Catalog, error)
}

type inMemSource struct {
	plans []Plan
	packs []MinutePack
}

// NewInMemSource returns a Source backed by the given plans and packs.
// Panics if no plans are provided to ensure services always have a catalog.
func NewInMemSource(plans []Plan, packs []MinutePack) Source {
	if len(plans) == 0 {
		panic("plan: at least one plan is required")
	}
	return &inMemSource{plans: plans, packs: packs}
}

func (s *inMemSource) Load(_ context.Context) (*Catalog, error) {
	return NewCatalog(s.plans, s.packs)
}

type fileSource struct {
	path string
}

// NewFileSource returns a Source that reads the catalog from a YAML file.
//
// File shape:
//
//	plans:
//	  - tier: premium
//	    name: Premium
//	    stripe_price_id: price_premium_monthly
//	    interval: monthly
//	    limits: {courses: 10, exercises: 10, fiches: 10, ai_minutes: 0}
//	    max_days_per_course: 10
//	packs:
//	  - id: pack_60
//	    minutes: 60
//	    stripe_price_id: price_minutes_60
func NewFileSource(path string) Source {
	return &fileSource{path: path}
}

func (s *fileSource) Load(_ context.Context) (*Catalog, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoad, err)
	}

	var doc struct {
		Plans []Plan       `yaml:"plans"`
		Packs []MinutePack `yaml:"packs"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Join(ErrFailedToLoad, fmt.Errorf("parse %s: %w", s.path, err))
	}

	return NewCatalog(doc.Plans, doc.Packs)
}
