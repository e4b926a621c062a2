package client

import (
	"fmt"
	"net/url"

	"bookline/pkg/model"
)

type NotificationClient struct {
	httpClient *HttpClient
}

func NewNotificationClient(httpClient *HttpClient) *NotificationClient {
	return &NotificationClient{httpClient: httpClient}
}

func (c *NotificationClient) List(limit int, offset int64) (*Response, error) {
	return c.httpClient.GET(fmt.Sprintf("/api/v1/notifications?limit=%d&offset=%d", limit, offset))
}

func (c *NotificationClient) UnreadCount() (*Response, error) {
	return c.httpClient.GET("/api/v1/notifications/unread-count")
}

func (c *NotificationClient) MarkRead(id string) (*Response, error) {
	return c.httpClient.PATCH("/api/v1/notifications/id/"+url.PathEscape(id)+"/read", map[string]string{})
}

func (c *NotificationClient) Broadcast(body any) (*Response, error) {
	return c.httpClient.POST("/api/v1/notifications/broadcast", body)
}

func (c *NotificationClient) DecodeNotifications(resp *Response) ([]*model.Notification, error) {
	var notifications []*model.Notification
	if err := resp.DecodeData(&notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}
