package client

import (
	"fmt"
	"net/url"

	"bookline/pkg/model"
)

type AppointmentClient struct {
	httpClient *HttpClient
}

func NewAppointmentClient(httpClient *HttpClient) *AppointmentClient {
	return &AppointmentClient{httpClient: httpClient}
}

func (c *AppointmentClient) Create(body any) (*Response, error) {
	return c.httpClient.POST("/api/v1/appointments", body)
}

func (c *AppointmentClient) CreateWithIdempotencyKey(body any, key string) (*Response, error) {
	return c.httpClient.POSTWithHeaders("/api/v1/appointments", body, map[string]string{"Idempotency-Key": key})
}

func (c *AppointmentClient) GetByID(id string) (*Response, error) {
	return c.httpClient.GET("/api/v1/appointments/id/" + url.PathEscape(id))
}

func (c *AppointmentClient) List(staffID, date string, limit int, offset int64) (*Response, error) {
	q := url.Values{}
	if staffID != "" {
		q.Set("staff_id", staffID)
	}
	if date != "" {
		q.Set("date", date)
	}
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("offset", fmt.Sprintf("%d", offset))
	return c.httpClient.GET("/api/v1/appointments?" + q.Encode())
}

func (c *AppointmentClient) UpdateStatus(id, status string) (*Response, error) {
	return c.httpClient.PATCH("/api/v1/appointments/id/"+url.PathEscape(id)+"/status", map[string]string{"status": status})
}

func (c *AppointmentClient) Delete(id string) (*Response, error) {
	return c.httpClient.DELETE("/api/v1/appointments/id/" + url.PathEscape(id))
}

func (c *AppointmentClient) DecodeAppointment(resp *Response) (*model.Appointment, error) {
	var appt model.Appointment
	if err := resp.DecodeData(&appt); err != nil {
		return nil, err
	}
	return &appt, nil
}
