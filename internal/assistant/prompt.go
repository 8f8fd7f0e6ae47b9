// Package assistant answers free-text questions about the stock through a
// Gemini model.
package assistant

import (
	"fmt"
	"strings"

	"github.com/erazemk/sinalizacao/internal/model"
)

const (
	// EmptyAnswerMessage is returned when the model produced no text.
	EmptyAnswerMessage = "O assistente não gerou uma resposta válida."
	// FallbackMessage replaces any provider failure.
	FallbackMessage = "Desculpe, tive um problema ao acessar os servidores centrais da Newcom IA. Por favor, tente novamente mais tarde."
)

// BuildContext renders one line per item, "CODE (DESCRIPTION): Entrada N,
// Saída M, Saldo B", joined with "; ".
func BuildContext(items []model.Item) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("%s (%s): Entrada %d, Saída %d, Saldo %d",
			it.Code, it.Description, it.Entry, it.Exit, it.Balance()))
	}
	return strings.Join(lines, "; ")
}

// SystemInstruction is the instruction sent with every question.
func SystemInstruction(items []model.Item) string {
	return `Você é o Assistente de Inteligência Logística do Grupo Newcom.
Especialista em SST (Segurança e Saúde no Trabalho) e controle de sinalização industrial conforme NR-26.

CONTEXTO ATUAL DO ESTOQUE: ` + BuildContext(items) + `.

Suas diretrizes:
1. Forneça análises sobre níveis críticos de estoque de placas.
2. Responda dúvidas técnicas sobre as cores e formas da NR-26 (ex: Vermelho = Proibição, Amarelo = Alerta, Verde = Segurança).
3. Seja conciso, profissional e use um tom de autoridade técnica.
4. Ajude o usuário a tomar decisões baseadas nos dados de entrada e saída.
5. Identifique padrões de consumo se houver dados históricos.`
}
