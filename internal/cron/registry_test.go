package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry, err := NewRegistry(jobA, nil, jobB)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	jobs := registry.Jobs()
	if len(jobs) != 2 || jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("unexpected jobs %+v", jobs)
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistryRejectsDuplicateAndBlankNames(t *testing.T) {
	if _, err := NewRegistry(&stubJob{name: "a"}, &stubJob{name: "a"}); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if _, err := NewRegistry(&stubJob{name: " "}); err == nil {
		t.Fatalf("expected blank name error")
	}
}

func TestRegistrySelect(t *testing.T) {
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry, err := NewRegistry(jobA, jobB)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	all, err := registry.Select(nil)
	if err != nil || len(all.Jobs()) != 2 {
		t.Fatalf("expected all jobs, got %v %v", all, err)
	}

	only, err := registry.Select([]string{" b "})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if jobs := only.Jobs(); len(jobs) != 1 || jobs[0] != jobB {
		t.Fatalf("unexpected selection %+v", jobs)
	}

	if _, err := registry.Select([]string{"missing"}); err == nil {
		t.Fatalf("expected unknown job error")
	}
}
