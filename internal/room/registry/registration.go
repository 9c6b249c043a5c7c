// Package registry registers the room with the Game On! map service on
// startup. Registration is best effort: a room that cannot register still
// serves players that find it by other means.
package registry

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gameon-rooms/carroom/internal/room/gateway"
	"github.com/gameon-rooms/carroom/pkg/log"
)

// Registrar registers a room's fixtures and callback endpoint with the map
// service, signing each request with the owner's shared key.
type Registrar struct {
	registrationURL string
	callbackURL     string
	ownerID         string
	ownerKey        string
	client          *http.Client
	log             log.Logger

	now func() time.Time
}

// New builds a registrar for the map service at registrationURL. callbackURL
// is the websocket endpoint the mediator should connect back to.
func New(registrationURL, callbackURL, ownerID, ownerKey string, timeout time.Duration, insecureSkipVerify bool) *Registrar {
	transport := http.DefaultTransport
	if insecureSkipVerify {
		// Self-signed map certs are common in test deployments.
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Registrar{
		registrationURL: registrationURL,
		callbackURL:     callbackURL,
		ownerID:         ownerID,
		ownerKey:        ownerKey,
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		log: log.WithName("registry"),
		now: time.Now,
	}
}

// registrationPayload is the body the map service stores for the room.
type registrationPayload struct {
	Name              string            `json:"name"`
	FullName          string            `json:"fullName"`
	Description       string            `json:"description"`
	Doors             map[string]string `json:"doors"`
	ConnectionDetails connectionDetails `json:"connectionDetails"`
}

type connectionDetails struct {
	Type   string `json:"type"`
	Target string `json:"target"`
}

// Register queries the map service for an existing registration under this
// owner and room name, then updates it with PUT or creates it with POST.
func (r *Registrar) Register(ctx context.Context, fixtures *gateway.Fixtures) error {
	body, err := json.Marshal(registrationPayload{
		Name:        fixtures.Name,
		FullName:    fixtures.FullName,
		Description: fixtures.Description,
		Doors:       fixtures.Exits,
		ConnectionDetails: connectionDetails{
			Type:   "websocket",
			Target: r.callbackURL,
		},
	})
	if err != nil {
		return fmt.Errorf("encode registration payload: %w", err)
	}

	id, registered, err := r.lookup(ctx, fixtures.Name)
	if err != nil {
		return fmt.Errorf("query existing registration: %w", err)
	}

	if registered {
		r.log.Info("Room already registered, updating", "id", id)
		return r.submit(ctx, http.MethodPut, r.registrationURL+"/"+id, body)
	}
	r.log.Info("Room not yet registered, creating")
	return r.submit(ctx, http.MethodPost, r.registrationURL, body)
}

// lookup asks the map service whether a room with this name and owner exists
// and returns its id when it does.
func (r *Registrar) lookup(ctx context.Context, name string) (string, bool, error) {
	query := url.Values{}
	query.Set("name", name)
	query.Set("owner", r.ownerID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.registrationURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Accept", "application/json,text/plain")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, nil
	}

	var rooms []struct {
		ID string `json:"_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		return "", false, fmt.Errorf("decode query response: %w", err)
	}
	if len(rooms) == 0 || rooms[0].ID == "" {
		return "", false, nil
	}
	return rooms[0].ID, true, nil
}

func (r *Registrar) submit(ctx context.Context, method, target string, body []byte) error {
	date := r.now().UTC().Format(time.RFC3339)
	bodyHash := BuildHash(body)
	signature := BuildHmac(r.ownerKey, r.ownerID, date, bodyHash)

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json,text/plain")
	req.Header.Set("gameon-id", r.ownerID)
	req.Header.Set("gameon-date", date)
	req.Header.Set("gameon-sig-body", bodyHash)
	req.Header.Set("gameon-signature", signature)

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("map service rejected registration: %s: %s", resp.Status, detail)
	}

	r.log.Info("Room registration succeeded", "status", resp.Status)
	return nil
}
