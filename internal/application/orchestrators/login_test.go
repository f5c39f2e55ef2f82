package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	"investhub/internal/domain/account"
)

func seededAccount(t *testing.T, status string) (*mockAccountStore, account.Account) {
	t.Helper()
	store := newMockAccountStore()
	acct := account.Account{
		ID: "a1", Email: "member@example.org", Name: "Member",
		Role: account.RoleMember, Status: status, CreatedAt: fixedTime,
	}
	if err := acct.SetPassword(testPassword); err != nil {
		t.Fatal(err)
	}
	store.accounts[acct.ID] = acct
	return store, acct
}

func TestExecuteLogin_Success(t *testing.T) {
	store, _ := seededAccount(t, account.StatusActive)
	a := store.accounts["a1"]
	a.FailedLogins = 2
	store.accounts["a1"] = a

	res, err := ExecuteLogin(context.Background(), LoginInput{Email: "Member@example.org", Password: testPassword},
		LoginDeps{AccountStore: store, Now: fixedNow})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.AccountID != "a1" || res.Role != account.RoleMember || res.Name != "Member" {
		t.Errorf("result = %+v", res)
	}
	if store.accounts["a1"].FailedLogins != 0 {
		t.Error("failed logins should reset on success")
	}
}

func TestExecuteLogin_WrongPasswordLocksAfterLimit(t *testing.T) {
	store, _ := seededAccount(t, account.StatusActive)
	deps := LoginDeps{AccountStore: store, Now: fixedNow}

	for i := 0; i < account.MaxFailedLogins; i++ {
		_, err := ExecuteLogin(context.Background(), LoginInput{Email: "member@example.org", Password: "wrong-password!"}, deps)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d err = %v", i, err)
		}
	}
	_, err := ExecuteLogin(context.Background(), LoginInput{Email: "member@example.org", Password: testPassword}, deps)
	if !errors.Is(err, ErrAccountLocked) {
		t.Errorf("err = %v, want ErrAccountLocked", err)
	}

	later := LoginDeps{AccountStore: store, Now: func() time.Time { return fixedTime.Add(account.LockoutDuration + time.Second) }}
	if _, err := ExecuteLogin(context.Background(), LoginInput{Email: "member@example.org", Password: testPassword}, later); err != nil {
		t.Errorf("login after lockout expiry: %v", err)
	}
}

func TestExecuteLogin_PendingVerification(t *testing.T) {
	store, _ := seededAccount(t, account.StatusPendingVerification)
	deps := LoginDeps{AccountStore: store, Now: fixedNow}

	_, err := ExecuteLogin(context.Background(), LoginInput{Email: "member@example.org", Password: testPassword}, deps)
	if !errors.Is(err, ErrPendingVerification) {
		t.Errorf("err = %v, want ErrPendingVerification", err)
	}
	_, err = ExecuteLogin(context.Background(), LoginInput{Email: "member@example.org", Password: "wrong-password!"}, deps)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password on pending account err = %v, want ErrInvalidCredentials", err)
	}
}

func TestExecuteLogin_UnknownOrEmpty(t *testing.T) {
	deps := LoginDeps{AccountStore: newMockAccountStore(), Now: fixedNow}
	for _, in := range []LoginInput{{}, {Email: "x@example.org"}, {Email: "x@example.org", Password: testPassword}} {
		if _, err := ExecuteLogin(context.Background(), in, deps); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("input %+v err = %v", in, err)
		}
	}
}
