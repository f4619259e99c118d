package chat

import "testing"

func TestChatRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     ChatRequest
		wantErr bool
	}{
		{
			name:    "valid",
			req:     ChatRequest{Messages: []ChatMessage{{Role: ChatRoleSystem, Content: "x"}, {Role: ChatRoleUser, Content: "y"}}},
			wantErr: false,
		},
		{
			name:    "no messages",
			req:     ChatRequest{},
			wantErr: true,
		},
		{
			name:    "unknown role",
			req:     ChatRequest{Messages: []ChatMessage{{Role: "narrator", Content: "x"}}},
			wantErr: true,
		},
		{
			name:    "temperature out of range",
			req:     ChatRequest{Messages: []ChatMessage{{Role: ChatRoleUser}}, Temperature: Temperature(2.5)},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSplitSystem(t *testing.T) {
	system, rest := SplitSystem([]ChatMessage{
		{Role: ChatRoleSystem, Content: "rules"},
		{Role: ChatRoleUser, Content: "hi"},
		{Role: ChatRoleSystem, Content: "state"},
		{Role: ChatRoleAgent, Content: "hello"},
	})
	if system != "rules\n\nstate" {
		t.Errorf("system = %q", system)
	}
	if len(rest) != 2 || rest[0].Content != "hi" || rest[1].Content != "hello" {
		t.Errorf("rest = %+v", rest)
	}
}
