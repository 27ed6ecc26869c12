package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Run is one recorded generation.
type Run struct {
	ID           string
	Seq          int64
	ManifestHash string
	Model        string
	Backend      string
	IOType       string
	Defines      string
	Declarations []string
	Warnings     int
	Types        []TypeRecord
}

// TypeRecord is one emitted type definition, in emission order.
type TypeRecord struct {
	Name string
	Kind string
}

// RecordRun stores r and returns it with ID and Seq assigned. A caller-set
// ID is kept; Seq always comes from the store's clock. The run and its type
// records are written in one transaction.
func (s *Store) RecordRun(ctx context.Context, r Run) (Run, error) {
	if err := validateRun(r); err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	if r.ID == "" {
		r.ID = s.ids.Generate()
	}
	r.Seq = s.clock.next()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("record run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, manifest_hash, model, backend, io_type, defines, declarations, warnings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		r.Seq,
		r.ManifestHash,
		r.Model,
		r.Backend,
		r.IOType,
		r.Defines,
		strings.Join(r.Declarations, "\n"),
		r.Warnings,
	)
	if err != nil {
		return Run{}, fmt.Errorf("record run %s: %w", r.ID, err)
	}

	for i, t := range r.Types {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_types (run_id, ordinal, name, kind)
			VALUES (?, ?, ?, ?)
		`, r.ID, i, t.Name, t.Kind)
		if err != nil {
			return Run{}, fmt.Errorf("record run %s: type %q: %w", r.ID, t.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("record run %s: commit: %w", r.ID, err)
	}
	return r, nil
}

func validateRun(r Run) error {
	var errs []error
	if r.ManifestHash == "" {
		errs = append(errs, errors.New("manifest hash is required"))
	}
	if r.Model == "" {
		errs = append(errs, errors.New("model name is required"))
	}
	if r.Backend == "" {
		errs = append(errs, errors.New("backend is required"))
	}
	if r.Warnings < 0 {
		errs = append(errs, fmt.Errorf("warning count %d is negative", r.Warnings))
	}
	for _, d := range r.Declarations {
		if strings.Contains(d, "\n") {
			errs = append(errs, fmt.Errorf("declaration %q spans lines", d))
		}
	}
	return errors.Join(errs...)
}
