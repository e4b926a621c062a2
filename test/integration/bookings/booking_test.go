//go:build integration

package integrationtests

import (
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"bookline/pkg/client"
	"bookline/pkg/model"
	"bookline/test/integration/testutil"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const customerPhone = "+1 (212) 555-0147"

type suite struct {
	env    *testutil.TestEnv
	mongo  *testutil.MongoHelper
	http   *client.HttpClient
	tenant *testutil.Tenant
}

func setup(t *testing.T) *suite {
	t.Helper()
	env := testutil.NewTestEnv()
	mongo, httpClient := env.Setup(t)
	t.Cleanup(func() { env.Cleanup(t, mongo) })

	return &suite{
		env:    env,
		mongo:  mongo,
		http:   httpClient,
		tenant: testutil.SeedTenant(t, mongo, customerPhone, "jane@example.com"),
	}
}

func (s *suite) appointments(token string) *client.AppointmentClient {
	return client.NewAppointmentClient(s.http.WithToken(token))
}

func (s *suite) asAdmin(t *testing.T) *client.AppointmentClient {
	return s.appointments(testutil.Token(t, s.env, s.tenant.Admin))
}

func mustStatus(t *testing.T, resp *client.Response, err error, want int) {
	t.Helper()
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %s", want, resp)
	}
}

func guest(phone string) map[string]string {
	return map[string]string{"name": "Walk In", "phone": phone}
}

func TestCreateBooking_PushesToEveryStaffDevice(t *testing.T) {
	s := setup(t)
	staffToken := testutil.Token(t, s.env, s.tenant.Staff)
	phoneConn := testutil.DialWS(t, s.env.ServerURL, staffToken)
	laptopConn := testutil.DialWS(t, s.env.ServerURL, staffToken)

	date := testutil.BookingDate(3)
	resp, err := s.asAdmin(t).Create(testutil.AppointmentBody(s.tenant, date, "09:00", "09:30", guest("+44 20 7946 0958")))
	mustStatus(t, resp, err, http.StatusCreated)

	appt, err := s.asAdmin(t).DecodeAppointment(resp)
	if err != nil {
		t.Fatal(err)
	}
	if !appt.IsGuest || appt.CustomerID != "" {
		t.Errorf("expected guest booking, got customer_id=%q is_guest=%v", appt.CustomerID, appt.IsGuest)
	}
	if appt.Status != model.StatusPending {
		t.Errorf("expected pending, got %s", appt.Status)
	}

	for _, msg := range []testutil.WSMessage{
		testutil.ReadWSEvent(t, phoneConn, "newNotification", 5*time.Second),
		testutil.ReadWSEvent(t, laptopConn, "newNotification", 5*time.Second),
	} {
		if !strings.Contains(string(msg.Data), appt.ID) {
			t.Errorf("expected notification for %s, got %s", appt.ID, msg.Data)
		}
	}

	var staff struct {
		Appointments []string `bson:"appointments"`
	}
	oid, _ := primitive.ObjectIDFromHex(s.tenant.Staff.UserID)
	s.mongo.FindOne(t, testutil.UsersCollection, bson.M{"_id": oid}, &staff)
	if len(staff.Appointments) != 1 || staff.Appointments[0] != appt.ID {
		t.Errorf("expected staff appointments [%s], got %v", appt.ID, staff.Appointments)
	}
}

func TestCreateBooking_OverlapRejectedAdjacentAllowed(t *testing.T) {
	s := setup(t)
	admin := s.asAdmin(t)
	date := testutil.BookingDate(4)

	resp, err := admin.Create(testutil.AppointmentBody(s.tenant, date, "10:00", "11:00", guest("+44 20 7946 0001")))
	mustStatus(t, resp, err, http.StatusCreated)

	resp, err = admin.Create(testutil.AppointmentBody(s.tenant, date, "10:30", "11:30", guest("+44 20 7946 0002")))
	mustStatus(t, resp, err, http.StatusConflict)
	if !strings.Contains(string(resp.Body), "SLOT_UNAVAILABLE") {
		t.Errorf("expected SLOT_UNAVAILABLE, got %s", resp.Body)
	}

	resp, err = admin.Create(testutil.AppointmentBody(s.tenant, date, "11:00", "11:30", guest("+44 20 7946 0003")))
	mustStatus(t, resp, err, http.StatusCreated)
}

func TestCreateBooking_ConcurrentRequestsForSameSlot(t *testing.T) {
	s := setup(t)
	date := testutil.BookingDate(5)
	const attempts = 5

	admin := s.asAdmin(t)
	var wg sync.WaitGroup
	statuses := make([]int, attempts)
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := admin.Create(testutil.AppointmentBody(s.tenant, date, "14:00", "15:00", guest("+44 20 7946 0100")))
			if err != nil {
				t.Errorf("request %d failed: %v", i, err)
				return
			}
			statuses[i] = resp.StatusCode
		}()
	}
	wg.Wait()

	created := 0
	for _, status := range statuses {
		switch status {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
		default:
			t.Errorf("unexpected status %d", status)
		}
	}
	if created != 1 {
		t.Fatalf("expected exactly one booking to win, got %d", created)
	}
	if got := s.mongo.CountDocuments(t, testutil.AppointmentsCollection, bson.M{"date": date}); got != 1 {
		t.Errorf("expected one stored appointment, got %d", got)
	}
}

func TestCreateBooking_ResolvesRegisteredCustomerByPhone(t *testing.T) {
	s := setup(t)

	resp, err := s.asAdmin(t).Create(testutil.AppointmentBody(s.tenant, testutil.BookingDate(6), "09:00", "09:30",
		map[string]string{"name": "Jane", "phone": "212-555-0147"}))
	mustStatus(t, resp, err, http.StatusCreated)

	appt, err := s.asAdmin(t).DecodeAppointment(resp)
	if err != nil {
		t.Fatal(err)
	}
	if appt.IsGuest || appt.CustomerID != s.tenant.Customer.UserID {
		t.Errorf("expected link to %s, got customer_id=%q is_guest=%v", s.tenant.Customer.UserID, appt.CustomerID, appt.IsGuest)
	}
}

func TestUpdateStatus_Lifecycle(t *testing.T) {
	s := setup(t)
	admin := s.asAdmin(t)

	resp, err := admin.Create(testutil.AppointmentBody(s.tenant, testutil.BookingDate(7), "12:00", "12:30", guest("+44 20 7946 0200")))
	mustStatus(t, resp, err, http.StatusCreated)
	appt, _ := admin.DecodeAppointment(resp)

	staff := s.appointments(testutil.Token(t, s.env, s.tenant.Staff))
	resp, err = staff.UpdateStatus(appt.ID, "confirmed")
	mustStatus(t, resp, err, http.StatusOK)

	resp, err = staff.UpdateStatus(appt.ID, "completed")
	mustStatus(t, resp, err, http.StatusOK)

	resp, err = admin.UpdateStatus(appt.ID, "cancelled")
	mustStatus(t, resp, err, http.StatusConflict)
	if !strings.Contains(string(resp.Body), "INVALID_TRANSITION") {
		t.Errorf("expected INVALID_TRANSITION, got %s", resp.Body)
	}

	resp, err = admin.GetByID(appt.ID)
	mustStatus(t, resp, err, http.StatusOK)
	final, _ := admin.DecodeAppointment(resp)
	if final.Status != model.StatusCompleted {
		t.Errorf("expected completed, got %s", final.Status)
	}
	if len(final.StatusHistory) < 3 {
		t.Errorf("expected status history with 3 entries, got %d", len(final.StatusHistory))
	}
}

func TestCreateBooking_IdempotentReplay(t *testing.T) {
	s := setup(t)
	admin := s.asAdmin(t)
	body := testutil.AppointmentBody(s.tenant, testutil.BookingDate(8), "16:00", "16:30", guest("+44 20 7946 0300"))

	first, err := admin.CreateWithIdempotencyKey(body, "create-once")
	mustStatus(t, first, err, http.StatusCreated)
	second, err := admin.CreateWithIdempotencyKey(body, "create-once")
	mustStatus(t, second, err, http.StatusCreated)

	if second.Header.Get("Idempotent-Replay") != "true" {
		t.Error("expected replay header on second response")
	}
	a, _ := admin.DecodeAppointment(first)
	b, _ := admin.DecodeAppointment(second)
	if a.ID != b.ID {
		t.Errorf("expected same appointment, got %s and %s", a.ID, b.ID)
	}
}

func TestClaimGuestBookings_LinksMatchingGuests(t *testing.T) {
	s := setup(t)
	admin := s.asAdmin(t)
	const latePhone = "+44 20 7946 0777"

	resp, err := admin.Create(testutil.AppointmentBody(s.tenant, testutil.BookingDate(9), "08:00", "08:30", guest(latePhone)))
	mustStatus(t, resp, err, http.StatusCreated)
	appt, _ := admin.DecodeAppointment(resp)
	if !appt.IsGuest {
		t.Fatalf("expected guest booking before the customer registers")
	}

	registered := testutil.NewUserBuilder(model.RoleCustomer).WithCompany(s.tenant.CompanyID).WithPhone(latePhone)
	s.mongo.Insert(t, testutil.UsersCollection, registered.Build())
	principal := s.tenant.Customer
	principal.UserID = registered.ID()

	customer := s.http.WithToken(testutil.Token(t, s.env, principal))
	claimPath := "/api/v1/customers/id/" + registered.ID() + "/claim-guest-bookings"
	resp, err = customer.POST(claimPath, nil)
	mustStatus(t, resp, err, http.StatusOK)

	var claimed struct {
		Linked []string `json:"linked"`
		Count  int      `json:"count"`
	}
	if err := resp.DecodeData(&claimed); err != nil {
		t.Fatal(err)
	}
	if claimed.Count != 1 || claimed.Linked[0] != appt.ID {
		t.Fatalf("expected [%s] linked, got %+v", appt.ID, claimed)
	}

	resp, err = customer.POST(claimPath, nil)
	mustStatus(t, resp, err, http.StatusOK)
	if err := resp.DecodeData(&claimed); err != nil {
		t.Fatal(err)
	}
	if claimed.Count != 0 {
		t.Errorf("expected second claim to link nothing, got %d", claimed.Count)
	}
}

func TestDelete_RemovesFromParticipants(t *testing.T) {
	s := setup(t)
	admin := s.asAdmin(t)

	resp, err := admin.Create(testutil.AppointmentBody(s.tenant, testutil.BookingDate(10), "13:00", "13:30", nil))
	mustStatus(t, resp, err, http.StatusUnprocessableEntity)

	resp, err = admin.Create(testutil.AppointmentBody(s.tenant, testutil.BookingDate(10), "13:00", "13:30", guest("+44 20 7946 0400")))
	mustStatus(t, resp, err, http.StatusCreated)
	appt, _ := admin.DecodeAppointment(resp)

	staff := s.appointments(testutil.Token(t, s.env, s.tenant.Staff))
	resp, err = staff.Delete(appt.ID)
	mustStatus(t, resp, err, http.StatusForbidden)

	resp, err = admin.Delete(appt.ID)
	mustStatus(t, resp, err, http.StatusNoContent)

	resp, err = admin.GetByID(appt.ID)
	mustStatus(t, resp, err, http.StatusNotFound)
	if got := s.mongo.CountDocuments(t, testutil.UsersCollection, bson.M{"appointments": appt.ID}); got != 0 {
		t.Errorf("expected no user to reference deleted appointment, got %d", got)
	}
}
