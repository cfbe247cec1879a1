package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/imovel-limpo/engine/internal/llm"
	"github.com/imovel-limpo/engine/internal/observability"
)

const chatSystemPrompt = `Você é o assistente virtual do Imóvel Limpo, uma plataforma que analisa matrículas de imóveis e certidões para corretores imobiliários.

Seu papel é:
1. Receber e entender matrículas de imóveis que os usuários enviam
2. Explicar o processo de análise
3. Responder dúvidas sobre documentação imobiliária
4. Ser amigável e profissional

Quando o usuário enviar um texto que parece ser uma matrícula de imóvel (contém palavras como "matrícula", "registro", "cartório", "R$", "imóvel", "averbação", proprietário, CPF, CNPJ, etc), você deve:
1. Confirmar que recebeu a matrícula
2. Informar que vai iniciar a análise
3. Responder com a seguinte estrutura JSON no final da sua mensagem:
{"action": "ANALYZE_MATRICULA", "hasMatricula": true}

Se o usuário enviar uma mensagem normal (dúvida, saudação, etc), responda normalmente de forma amigável.

IMPORTANTE:
- Responda SEMPRE em português do Brasil
- Seja conciso e objetivo
- Se identificar uma matrícula, SEMPRE inclua o JSON de ação no final
- Você é simpático mas profissional`

// actionPattern matches the machine-readable action block the model appends
// when it recognizes a matrícula in the user's message.
var actionPattern = regexp.MustCompile(`\{"action":\s*"ANALYZE_MATRICULA".*?\}`)

// ChatHandler serves the conversational assistant.
type ChatHandler struct {
	logger  *observability.Logger
	chatter llm.Chatter
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(logger *observability.Logger, chatter llm.Chatter) *ChatHandler {
	return &ChatHandler{
		logger:  logger,
		chatter: chatter,
	}
}

type chatRequest struct {
	Message string            `json:"message"`
	History []llm.ChatMessage `json:"history"`
}

type chatResponse struct {
	Success       bool   `json:"success"`
	Response      string `json:"response"`
	ShouldAnalyze bool   `json:"shouldAnalyze"`
	MatriculaText string `json:"matriculaText,omitempty"`
}

// Chat answers one conversational turn. When the model flags the message as
// a matrícula, the action block is stripped from the visible reply and the
// original message is echoed back for the analysis flow.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Corpo da requisição inválido.")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "Mensagem é obrigatória.")
		return
	}

	answer, err := h.chatter.Chat(r.Context(), chatSystemPrompt, req.History, req.Message)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	resp := chatResponse{Success: true, Response: answer}
	if match := actionPattern.FindString(answer); match != "" {
		var action struct {
			HasMatricula bool `json:"hasMatricula"`
		}
		if json.Unmarshal([]byte(match), &action) == nil && action.HasMatricula {
			resp.ShouldAnalyze = true
			resp.MatriculaText = req.Message
			resp.Response = strings.TrimSpace(strings.Replace(answer, match, "", 1))
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
