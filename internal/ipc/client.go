package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"github.com/google/uuid"

	"audioflip/internal/api"
	"audioflip/internal/switcher"
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

func newRequestID() RequestID {
	return RequestID{RequestID: uuid.NewString()}
}

func (c *Client) call(method string, req, resp any) error {
	return c.client.Call(ServiceName+"."+method, req, resp)
}

// callDevices performs a device call. A transport failure is returned as is;
// a coordinator failure comes back as a *switcher.Error alongside the
// response, which still carries any snapshot the daemon had.
func (c *Client) callDevices(method string, req any) (*DevicesResponse, error) {
	var resp DevicesResponse
	if err := c.call(method, req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return &resp, resp.Error.Err()
	}
	return &resp, nil
}

// ListDevices returns the daemon's current device snapshot.
func (c *Client) ListDevices() (*DevicesResponse, error) {
	return c.callDevices("ListDevices", ListDevicesRequest{RequestID: newRequestID()})
}

// ToggleDevice switches the default output to id.
func (c *Client) ToggleDevice(id string) (*DevicesResponse, error) {
	return c.callDevices("ToggleDevice", ToggleDeviceRequest{RequestID: newRequestID(), ID: id})
}

// Cycle advances to the next device in rotation.
func (c *Client) Cycle() (*DevicesResponse, error) {
	return c.callDevices("Cycle", CycleRequest{RequestID: newRequestID()})
}

// SetRotation includes or excludes id from cycling.
func (c *Client) SetRotation(id string, include bool) (*DevicesResponse, error) {
	return c.callDevices("SetRotation", SetRotationRequest{RequestID: newRequestID(), ID: id, Include: include})
}

// History returns up to limit recent switch attempts.
func (c *Client) History(limit int) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.call("History", HistoryRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Events long-polls hot-plug events after since.
func (c *Client) Events(req EventsRequest) (*EventsResponse, error) {
	var resp EventsResponse
	if err := c.call("Events", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Quit asks the daemon process to exit.
func (c *Client) Quit() (*QuitResponse, error) {
	var resp QuitResponse
	if err := c.call("Quit", QuitRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Snapshot converts a device response back into a switcher snapshot.
func Snapshot(resp *DevicesResponse) switcher.Snapshot {
	if resp == nil {
		return nil
	}
	return api.ToSnapshot(resp.Devices)
}
