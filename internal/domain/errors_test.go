package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainErrorWrapping(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := LookupError("Serviço indisponível.", cause)

	if !errors.Is(err, cause) {
		t.Error("wrapped cause not reachable via errors.Is")
	}

	wrapped := fmt.Errorf("run analysis: %w", err)
	if TypeOf(wrapped) != ErrorTypeLookup {
		t.Errorf("TypeOf = %q, want lookup", TypeOf(wrapped))
	}
	if !IsType(wrapped, ErrorTypeLookup) {
		t.Error("IsType failed through wrapping")
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "domain error exposes its message",
			err:  ValidationError("Texto da matrícula é obrigatório.", nil),
			want: "Texto da matrícula é obrigatório.",
		},
		{
			name: "raw error stays hidden",
			err:  errors.New("pq: connection reset by peer"),
			want: "Erro ao processar análise. Tente novamente.",
		},
		{
			name: "wrapped domain error still found",
			err:  fmt.Errorf("handler: %w", RateLimitedError("Limite de requisições atingido.", nil)),
			want: "Limite de requisições atingido.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTypeOfPlainError(t *testing.T) {
	if TypeOf(errors.New("boom")) != "" {
		t.Error("plain error should have no domain type")
	}
}
