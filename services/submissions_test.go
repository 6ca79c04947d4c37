package services

import (
	"sync"
	"testing"
	"time"

	"quest-campaign-system/models"
)

func TestCreateIfAbsent(t *testing.T) {
	db := openTestDB(t)
	user := createTestUser(t, db, 0)
	task := createTestTask(t, db, user, models.VerificationManual, models.ProofTypeGeneric, 50)
	store := NewSubmissionStore(db)

	first, created, err := store.CreateIfAbsent(&models.TaskSubmission{
		ExternalUserID: user.ExternalUserID,
		TaskID:         task.ID,
		Evidence:       models.Evidence{Text: "done it"},
	})
	if err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}
	if !created {
		t.Fatal("first insert should report created")
	}
	if first.Status != models.SubmissionPending {
		t.Errorf("new submission status = %s, want PENDING", first.Status)
	}

	second, created, err := store.CreateIfAbsent(&models.TaskSubmission{
		ExternalUserID: user.ExternalUserID,
		TaskID:         task.ID,
		Evidence:       models.Evidence{Text: "again"},
	})
	if err != nil {
		t.Fatalf("CreateIfAbsent (duplicate): %v", err)
	}
	if created {
		t.Fatal("duplicate insert must not report created")
	}
	if second.ID != first.ID {
		t.Errorf("duplicate should return the stored row, got %s want %s", second.ID, first.ID)
	}

	var count int64
	db.Model(&models.TaskSubmission{}).Count(&count)
	if count != 1 {
		t.Errorf("expected exactly 1 row, found %d", count)
	}
}

func TestCreateIfAbsentSubTaskSeparate(t *testing.T) {
	db := openTestDB(t)
	user := createTestUser(t, db, 0)
	task := createTestTask(t, db, user, models.VerificationManual, models.ProofTypeGeneric, 50)
	store := NewSubmissionStore(db)

	// whole-task and per-subtask submissions occupy different slots
	if _, created, err := store.CreateIfAbsent(&models.TaskSubmission{
		ExternalUserID: user.ExternalUserID,
		TaskID:         task.ID,
		Evidence:       models.Evidence{Text: "whole task"},
	}); err != nil || !created {
		t.Fatalf("whole-task insert: created=%v err=%v", created, err)
	}
	if _, created, err := store.CreateIfAbsent(&models.TaskSubmission{
		ExternalUserID: user.ExternalUserID,
		TaskID:         task.ID,
		SubTaskID:      "st-1",
		Evidence:       models.Evidence{Text: "subtask"},
	}); err != nil || !created {
		t.Fatalf("subtask insert: created=%v err=%v", created, err)
	}
}

func TestCreateIfAbsentConcurrent(t *testing.T) {
	db := openTestDB(t)
	user := createTestUser(t, db, 0)
	task := createTestTask(t, db, user, models.VerificationManual, models.ProofTypeGeneric, 50)
	store := NewSubmissionStore(db)

	const attempts = 8
	var wg sync.WaitGroup
	results := make([]bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, created, err := store.CreateIfAbsent(&models.TaskSubmission{
				ExternalUserID: user.ExternalUserID,
				TaskID:         task.ID,
				Evidence:       models.Evidence{Text: "race"},
			})
			if err != nil {
				t.Errorf("CreateIfAbsent: %v", err)
				return
			}
			results[i] = created
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, created := range results {
		if created {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("exactly one concurrent insert should win, got %d", winners)
	}
	var count int64
	db.Model(&models.TaskSubmission{}).Count(&count)
	if count != 1 {
		t.Errorf("expected exactly 1 row after the race, found %d", count)
	}
}

func TestResolveIdempotent(t *testing.T) {
	db := openTestDB(t)
	user := createTestUser(t, db, 0)
	task := createTestTask(t, db, user, models.VerificationManual, models.ProofTypeGeneric, 50)
	store := NewSubmissionStore(db)

	sub, _, err := store.CreateIfAbsent(&models.TaskSubmission{
		ExternalUserID: user.ExternalUserID,
		TaskID:         task.ID,
		Evidence:       models.Evidence{Text: "done"},
	})
	if err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}

	resolved, changed, err := store.Resolve(sub.ID, models.SubmissionApproved, "", "reviewer-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !changed {
		t.Fatal("first resolve should report a transition")
	}
	if resolved.Status != models.SubmissionApproved {
		t.Errorf("status = %s, want APPROVED", resolved.Status)
	}
	if resolved.ResolvedAt == nil || resolved.ResolvedBy != "reviewer-1" {
		t.Errorf("resolution metadata missing: at=%v by=%q", resolved.ResolvedAt, resolved.ResolvedBy)
	}

	// second resolve, even with the opposite verdict, is a no-op
	again, changed, err := store.Resolve(sub.ID, models.SubmissionRejected, "changed my mind", "reviewer-2")
	if err != nil {
		t.Fatalf("Resolve (repeat): %v", err)
	}
	if changed {
		t.Error("terminal submission must not transition again")
	}
	if again.Status != models.SubmissionApproved {
		t.Errorf("repeat resolve mutated status to %s", again.Status)
	}
	if again.ResolvedBy != "reviewer-1" {
		t.Errorf("repeat resolve mutated resolver to %q", again.ResolvedBy)
	}
}

func TestResolveInvalidVerdict(t *testing.T) {
	db := openTestDB(t)
	store := NewSubmissionStore(db)
	if _, _, err := store.Resolve("whatever", "MAYBE", "", "r"); err != ErrInvalidVerdict {
		t.Fatalf("expected ErrInvalidVerdict, got %v", err)
	}
}

func TestResolveUnknownSubmission(t *testing.T) {
	db := openTestDB(t)
	store := NewSubmissionStore(db)
	if _, _, err := store.Resolve("nope", models.SubmissionApproved, "", "r"); err != ErrSubmissionNotFound {
		t.Fatalf("expected ErrSubmissionNotFound, got %v", err)
	}
}

func TestStalePending(t *testing.T) {
	db := openTestDB(t)
	user := createTestUser(t, db, 0)
	autoTask := createTestTask(t, db, user, models.VerificationAIAuto, models.ProofTypeLike, 50)
	manualTask := createTestTask(t, db, user, models.VerificationManual, models.ProofTypeGeneric, 50)
	store := NewSubmissionStore(db)

	old, _, err := store.CreateIfAbsent(&models.TaskSubmission{
		ExternalUserID: user.ExternalUserID,
		TaskID:         autoTask.ID,
		Evidence:       models.Evidence{ProofURL: "https://x.example/status/1", Handle: "alice"},
	})
	if err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}
	if _, _, err := store.CreateIfAbsent(&models.TaskSubmission{
		ExternalUserID: user.ExternalUserID,
		TaskID:         manualTask.ID,
		Evidence:       models.Evidence{Text: "manual, should never be stale"},
	}); err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}

	// age the automated one past the window
	backdated := time.Now().Add(-48 * time.Hour)
	if err := db.Model(&models.TaskSubmission{}).Where("id = ?", old.ID).
		Update("submitted_at", backdated).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}

	stale, err := store.StalePending(24 * time.Hour)
	if err != nil {
		t.Fatalf("StalePending: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != old.ID {
		t.Fatalf("expected only the aged automated submission, got %d rows", len(stale))
	}
}
