package config

import (
	"testing"
)

func TestICEServersJSON(t *testing.T) {
	cfg, err := load(lookupMap(map[string]string{
		envICEServersJSON: `[
			{"urls":"stun:stun.l.google.com:19302"},
			{"urls":["turn:turn.example.com:3478","turns:turn.example.com:5349"],"username":"u","credential":"p"}
		]`,
	}), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.ICEServers) != 2 {
		t.Fatalf("got %d ice servers, want 2", len(cfg.ICEServers))
	}
	if cfg.ICEServers[0].URLs[0] != "stun:stun.l.google.com:19302" {
		t.Fatalf("stun url=%q", cfg.ICEServers[0].URLs[0])
	}
	if cfg.ICEServers[1].Username != "u" {
		t.Fatalf("turn username=%q, want u", cfg.ICEServers[1].Username)
	}
	if cred, _ := cfg.ICEServers[1].Credential.(string); cred != "p" {
		t.Fatalf("turn credential=%v, want p", cfg.ICEServers[1].Credential)
	}
}

func TestICEServersConvenienceEnv(t *testing.T) {
	cfg, err := load(lookupMap(map[string]string{
		envStunURLs:       "stun:stun.example.com:3478,stun:stun2.example.com:3478",
		envTurnURLs:       "turn:turn.example.com:3478",
		envTurnUsername:   "u",
		envTurnCredential: "p",
	}), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.ICEServers) != 2 {
		t.Fatalf("got %d ice servers, want 2", len(cfg.ICEServers))
	}
	if len(cfg.ICEServers[0].URLs) != 2 {
		t.Fatalf("stun urls=%v, want 2 entries", cfg.ICEServers[0].URLs)
	}
}

func TestICEServersJSONBeatsConvenienceEnv(t *testing.T) {
	cfg, err := load(lookupMap(map[string]string{
		envICEServersJSON: `[{"urls":"stun:json.example.com:3478"}]`,
		envStunURLs:       "stun:ignored.example.com:3478",
	}), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.ICEServers) != 1 || cfg.ICEServers[0].URLs[0] != "stun:json.example.com:3478" {
		t.Fatalf("ICEServers=%v, want JSON value only", cfg.ICEServers)
	}
}

func TestICEServersInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"not json", map[string]string{envICEServersJSON: `nope`}},
		{"missing urls", map[string]string{envICEServersJSON: `[{"username":"u"}]`}},
		{"bad scheme", map[string]string{envICEServersJSON: `[{"urls":"http://example.com"}]`}},
		{"turn without username", map[string]string{envICEServersJSON: `[{"urls":"turn:t.example.com:3478","credential":"p"}]`}},
		{"turn without credential", map[string]string{envICEServersJSON: `[{"urls":"turn:t.example.com:3478","username":"u"}]`}},
		{"turn env without creds", map[string]string{envTurnURLs: "turn:t.example.com:3478"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := load(lookupMap(tt.env), nil); err == nil {
				t.Fatalf("load succeeded, want error")
			}
		})
	}
}
