// Package client implements a client for the external token transfer service.
package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danilovkiri/dk-go-backstop/internal/config"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

type transferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// Client defines attributes of a struct available to its methods.
type Client struct {
	client       *resty.Client
	serverConfig *config.ServerConfig
	log          *zerolog.Logger
}

// InitClient initializes a resty client.
func InitClient(serverConfig *config.ServerConfig, log *zerolog.Logger) *Client {
	transferClient := resty.New()
	log.Info().Msg("token transfer service client initialized")
	return &Client{client: transferClient, serverConfig: serverConfig, log: log}
}

// Transfer executes one token transfer between two token accounts. Any
// outcome other than a 200 response is a failed transfer.
func (c *Client) Transfer(ctx context.Context, from, to string, amount uint64) error {
	response, err := c.client.R().SetContext(ctx).SetBody(transferRequest{From: from, To: to, Amount: amount}).Post(c.serverConfig.TokenServiceAddress + "/api/transfer")
	if err != nil {
		c.log.Error().Err(err).Msg(fmt.Sprintf("token transfer from %s to %s failed", from, to))
		return err
	}
	if response.StatusCode() != http.StatusOK {
		c.log.Error().Msg(fmt.Sprintf("token transfer from %s to %s rejected with code %v", from, to, response.StatusCode()))
		return fmt.Errorf("token transfer rejected with code %v", response.StatusCode())
	}
	return nil
}
