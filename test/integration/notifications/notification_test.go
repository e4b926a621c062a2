//go:build integration

package integrationtests

import (
	"net/http"
	"testing"
	"time"

	"bookline/pkg/client"
	"bookline/test/integration/testutil"
)

func setup(t *testing.T) (*testutil.TestEnv, *client.HttpClient, *testutil.Tenant, *testutil.Tenant) {
	t.Helper()
	env := testutil.NewTestEnv()
	mongo, httpClient := env.Setup(t)
	t.Cleanup(func() { env.Cleanup(t, mongo) })

	home := testutil.SeedTenant(t, mongo, "+1 212 555 0101", "home@example.com")
	other := testutil.SeedTenant(t, mongo, "+1 212 555 0202", "other@example.com")
	return env, httpClient, home, other
}

func unreadCount(t *testing.T, c *client.NotificationClient) int64 {
	t.Helper()
	resp, err := c.UnreadCount()
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("unread count failed: %v %s", err, resp)
	}
	var body struct {
		Count int64 `json:"count"`
	}
	if err := resp.DecodeData(&body); err != nil {
		t.Fatal(err)
	}
	return body.Count
}

func TestBroadcast_CompanyScopeReachesOnlyTenant(t *testing.T) {
	env, httpClient, home, other := setup(t)

	homeStaffToken := testutil.Token(t, env, home.Staff)
	conn := testutil.DialWS(t, env.ServerURL, homeStaffToken)

	admin := client.NewNotificationClient(httpClient.WithToken(testutil.Token(t, env, home.Admin)))
	resp, err := admin.Broadcast(map[string]any{
		"scope":   "company",
		"title":   "Closed Friday",
		"message": "The shop is closed this Friday",
	})
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("broadcast failed: %v %s", err, resp)
	}

	msg := testutil.ReadWSEvent(t, conn, "newNotification", 5*time.Second)
	if len(msg.Data) == 0 {
		t.Fatal("expected notification payload")
	}

	homeStaff := client.NewNotificationClient(httpClient.WithToken(homeStaffToken))
	if got := unreadCount(t, homeStaff); got != 1 {
		t.Errorf("expected 1 unread for home staff, got %d", got)
	}

	otherStaff := client.NewNotificationClient(httpClient.WithToken(testutil.Token(t, env, other.Staff)))
	if got := unreadCount(t, otherStaff); got != 0 {
		t.Errorf("expected 0 unread for other tenant, got %d", got)
	}
}

func TestMarkAsRead_OverHTTPAndRealtime(t *testing.T) {
	env, httpClient, home, _ := setup(t)

	admin := client.NewNotificationClient(httpClient.WithToken(testutil.Token(t, env, home.SuperAdmin)))
	for range 2 {
		resp, err := admin.Broadcast(map[string]any{"scope": "all", "title": "Maintenance", "message": "Tonight at 22:00"})
		if err != nil || resp.StatusCode != http.StatusCreated {
			t.Fatalf("broadcast failed: %v %s", err, resp)
		}
	}

	customerToken := testutil.Token(t, env, home.Customer)
	customer := client.NewNotificationClient(httpClient.WithToken(customerToken))
	resp, err := customer.List(10, 0)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("list failed: %v %s", err, resp)
	}
	list, err := customer.DecodeNotifications(resp)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(list))
	}

	resp, err = customer.MarkRead(list[0].ID)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("mark read failed: %v %s", err, resp)
	}
	if got := unreadCount(t, customer); got != 1 {
		t.Errorf("expected 1 unread after HTTP mark, got %d", got)
	}

	conn := testutil.DialWS(t, env.ServerURL, customerToken)
	if err := conn.WriteJSON(map[string]any{
		"event": "markAsRead",
		"id":    "r1",
		"data":  map[string]string{"notificationId": list[1].ID},
	}); err != nil {
		t.Fatal(err)
	}
	reply := testutil.ReadWSEvent(t, conn, "markAsRead", 5*time.Second)
	if reply.ID != "r1" {
		t.Errorf("expected echoed id r1, got %q", reply.ID)
	}
	if got := unreadCount(t, customer); got != 0 {
		t.Errorf("expected 0 unread after realtime mark, got %d", got)
	}
}

func TestBroadcast_Authorization(t *testing.T) {
	env, httpClient, home, other := setup(t)

	tests := []struct {
		name  string
		actor func() string
		body  map[string]any
		want  int
	}{
		{
			name:  "staff cannot broadcast",
			actor: func() string { return testutil.Token(t, env, home.Staff) },
			body:  map[string]any{"scope": "company", "title": "t", "message": "m"},
			want:  http.StatusForbidden,
		},
		{
			name:  "admin cannot target another tenant",
			actor: func() string { return testutil.Token(t, env, home.Admin) },
			body:  map[string]any{"scope": "company", "company_id": other.CompanyID, "title": "t", "message": "m"},
			want:  http.StatusForbidden,
		},
		{
			name:  "admin cannot broadcast to everyone",
			actor: func() string { return testutil.Token(t, env, home.Admin) },
			body:  map[string]any{"scope": "all", "title": "t", "message": "m"},
			want:  http.StatusForbidden,
		},
		{
			name:  "missing token",
			actor: func() string { return "" },
			body:  map[string]any{"scope": "all", "title": "t", "message": "m"},
			want:  http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := client.NewNotificationClient(httpClient.WithToken(tt.actor()))
			resp, err := c.Broadcast(tt.body)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("expected %d, got %s", tt.want, resp)
			}
		})
	}
}

func TestRealtime_RejectsBadToken(t *testing.T) {
	env, _, _, _ := setup(t)

	resp, err := http.Get(env.ServerURL + "/ws?token=not-a-jwt")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}
