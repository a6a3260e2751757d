package tenant

import "testing"

func TestManagerCreateTenant(t *testing.T) {
	manager := NewManager()
	quota := Quota{MaxPoints: 10000, MaxConcurrent: 2, RateLimitQPS: 100}

	tn, err := manager.CreateTenant("test-namespace", quota)
	if err != nil {
		t.Fatalf("CreateTenant failed: %v", err)
	}
	if tn.Namespace != "test-namespace" {
		t.Errorf("expected namespace test-namespace, got %s", tn.Namespace)
	}
	if tn.Quota.MaxPoints != 10000 {
		t.Errorf("expected MaxPoints 10000, got %d", tn.Quota.MaxPoints)
	}
	if !tn.IsActive {
		t.Error("expected tenant to be active")
	}
}

func TestManagerCreateDuplicateTenant(t *testing.T) {
	manager := NewManager()
	quota := DefaultQuota()

	if _, err := manager.CreateTenant("test", quota); err != nil {
		t.Fatalf("first CreateTenant failed: %v", err)
	}
	if _, err := manager.CreateTenant("test", quota); err == nil {
		t.Error("expected error creating duplicate tenant")
	}
}

func TestManagerGetTenant(t *testing.T) {
	manager := NewManager()
	created, err := manager.CreateTenant("test", DefaultQuota())
	if err != nil {
		t.Fatalf("CreateTenant failed: %v", err)
	}

	got, err := manager.GetTenant("test")
	if err != nil {
		t.Fatalf("GetTenant failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("expected ID %s, got %s", created.ID, got.ID)
	}
}

func TestManagerGetNonexistentTenant(t *testing.T) {
	manager := NewManager()
	if _, err := manager.GetTenant("nonexistent"); err == nil {
		t.Error("expected error getting nonexistent tenant")
	}
}

func TestManagerDeleteTenant(t *testing.T) {
	manager := NewManager()
	if _, err := manager.CreateTenant("test", DefaultQuota()); err != nil {
		t.Fatalf("CreateTenant failed: %v", err)
	}
	if err := manager.DeleteTenant("test"); err != nil {
		t.Fatalf("DeleteTenant failed: %v", err)
	}
	if _, err := manager.GetTenant("test"); err == nil {
		t.Error("expected error getting deleted tenant")
	}
}

func TestManagerListTenants(t *testing.T) {
	manager := NewManager()
	quota := DefaultQuota()
	manager.CreateTenant("tenant1", quota)
	manager.CreateTenant("tenant2", quota)
	manager.CreateTenant("tenant3", quota)

	if got := len(manager.ListTenants()); got != 3 {
		t.Errorf("expected 3 tenants, got %d", got)
	}
}

func TestTenantCheckPointQuota(t *testing.T) {
	tn := &Tenant{Quota: Quota{MaxPoints: 100}}

	if err := tn.CheckPointQuota(90); err != nil {
		t.Errorf("expected 90 points to pass quota 100: %v", err)
	}
	if err := tn.CheckPointQuota(200); err == nil {
		t.Error("expected 200 points to exceed quota 100")
	}
}

func TestTenantBeginEndJob(t *testing.T) {
	tn := &Tenant{Quota: Quota{MaxConcurrent: 2}}

	if err := tn.BeginJob(); err != nil {
		t.Fatalf("first BeginJob failed: %v", err)
	}
	if err := tn.BeginJob(); err != nil {
		t.Fatalf("second BeginJob failed: %v", err)
	}
	if err := tn.BeginJob(); err == nil {
		t.Error("expected third BeginJob to fail concurrency quota")
	}

	tn.EndJob()
	if err := tn.BeginJob(); err != nil {
		t.Errorf("expected BeginJob to succeed after EndJob freed a slot: %v", err)
	}
	if tn.Usage.JobsRun != 1 {
		t.Errorf("expected JobsRun 1, got %d", tn.Usage.JobsRun)
	}
}

func TestTenantCheckRateLimit(t *testing.T) {
	tn := &Tenant{Quota: Quota{RateLimitQPS: 5}}

	for i := 0; i < 5; i++ {
		if err := tn.CheckRateLimit(); err != nil {
			t.Errorf("submission %d should pass: %v", i+1, err)
		}
	}
	if err := tn.CheckRateLimit(); err == nil {
		t.Error("expected 6th submission in the same second to fail")
	}
}

func TestDefaultAndUnlimitedQuota(t *testing.T) {
	if DefaultQuota().MaxPoints <= 0 {
		t.Error("expected positive MaxPoints in default quota")
	}
	if UnlimitedQuota().MaxPoints != -1 {
		t.Error("expected unlimited MaxPoints (-1)")
	}
}
