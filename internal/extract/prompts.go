package extract

import "fmt"

// ocrPrompt is the verbatim-transcription instruction used for every page or
// image sent to the vision model.
const ocrPrompt = `Extraia TODO o texto visível nesta imagem de documento.
Mantenha a formatação original.
Não omita nenhuma informação.
Retorne APENAS o texto extraído.`

// matriculaPromptTemplate drives the structured extraction. The ownership
// rules matter: the matrícula is a chronological chain of transfers and only
// the parties of the most recent valid transfer are the current owners.
const matriculaPromptTemplate = `Você é um especialista em análise de matrículas de imóveis brasileiras.

Analise o texto da matrícula abaixo e extraia as seguintes informações em formato JSON:

{
  "numero": "número da matrícula",
  "cartorio": "nome do cartório de registro",
  "endereco": "endereço completo do imóvel",
  "area": "área do imóvel em m²",
  "proprietarios": [
    {
      "nome": "nome completo",
      "cpfCnpj": "CPF ou CNPJ (apenas números)",
      "tipo": "PF ou PJ"
    }
  ],
  "averbacoes": ["lista de averbações importantes"],
  "onus": ["lista de ônus, hipotecas, penhoras ou gravames encontrados"]
}

IMPORTANTE:
- Extraia APENAS os PROPRIETÁRIOS ATUAIS do imóvel (os que constam na ÚLTIMA transmissão/compra vigente)
- A última transmissão geralmente tem 1 ou 2 proprietários (ex: casal que comprou junto)
- NÃO inclua proprietários anteriores que já venderam ou transmitiram o imóvel
- A matrícula mostra um histórico cronológico - identifique quem é o dono ATUAL baseado no registro mais recente de compra/venda
- Se a última transmissão foi para um casal, inclua AMBOS os cônjuges
- Se não encontrar algum campo, coloque null
- Os CPFs/CNPJs devem ter apenas números
- Seja preciso na extração

TEXTO DA MATRÍCULA:
%s

Responda APENAS com o JSON, sem explicações adicionais.`

func matriculaPrompt(text string) string {
	return fmt.Sprintf(matriculaPromptTemplate, text)
}
