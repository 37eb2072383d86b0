package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[Resp any](c *Client, method string, req any) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(ServiceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Status", StatusRequest{})
}

// RoomList returns rooms for the given view.
func (c *Client) RoomList(actor Actor, view string) (*RoomListResponse, error) {
	return call[RoomListResponse](c, "RoomList", RoomListRequest{Actor: actor, View: view})
}

// RoomDescribe returns a room and its history.
func (c *Client) RoomDescribe(id string) (*RoomDescribeResponse, error) {
	return call[RoomDescribeResponse](c, "RoomDescribe", RoomDescribeRequest{ID: id})
}

// Claim claims a room for actor.
func (c *Client) Claim(actor Actor, id string) (*ClaimResponse, error) {
	return call[ClaimResponse](c, "Claim", ClaimRequest{Actor: actor, ID: id})
}

// CloseRoom closes a room on behalf of actor.
func (c *Client) CloseRoom(actor Actor, id string) (*CloseResponse, error) {
	return call[CloseResponse](c, "Close", CloseRequest{Actor: actor, ID: id})
}

// Post sends a message as actor.
func (c *Client) Post(actor Actor, id, content string) (*PostResponse, error) {
	return call[PostResponse](c, "Post", PostRequest{Actor: actor, ID: id, Content: content})
}

// NotificationList returns staff notices.
func (c *Client) NotificationList(unreadOnly bool, limit int) (*NotificationListResponse, error) {
	return call[NotificationListResponse](c, "NotificationList", NotificationListRequest{UnreadOnly: unreadOnly, Limit: limit})
}

// DatabaseHealth retrieves detailed database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	return call[DatabaseHealthResponse](c, "DatabaseHealth", DatabaseHealthRequest{})
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationResponse](c, "TestNotification", TestNotificationRequest{})
}
