package llm

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassifyResponse_ValidTransaction(t *testing.T) {
	raw := `{
		"isTransaction": true,
		"transactionDetails": {
			"description": "Almoço no restaurante",
			"amount": 45.90,
			"type": "expense",
			"category": "Alimentação",
			"dueDate": "",
			"recurrence": ""
		},
		"responseMessage": "Registrei um gasto de R$ 45,90 em Alimentação."
	}`

	result, err := parseClassifyResponse(raw)
	require.NoError(t, err)

	assert.True(t, result.IsTransaction)
	require.NotNil(t, result.TransactionDetails)
	assert.Equal(t, "Almoço no restaurante", result.TransactionDetails.Description)
	assert.True(t, result.TransactionDetails.Amount.Equal(decimal.NewFromFloat(45.90)))
	assert.Equal(t, "expense", result.TransactionDetails.Type)
	assert.Equal(t, "Alimentação", result.TransactionDetails.Category)
}

func TestParseClassifyResponse_NegativeAmountClampedToZero(t *testing.T) {
	raw := `{"isTransaction": true, "transactionDetails": {"description": "x", "amount": -10, "type": "expense", "category": "Outros"}, "responseMessage": "ok"}`

	result, err := parseClassifyResponse(raw)
	require.NoError(t, err)
	require.NotNil(t, result.TransactionDetails)
	assert.True(t, result.TransactionDetails.Amount.IsZero())
}

func TestParseClassifyResponse_UnknownTypeDegradesToNonTransaction(t *testing.T) {
	raw := `{"isTransaction": true, "transactionDetails": {"description": "x", "amount": 10, "type": "loan", "category": "Outros"}, "responseMessage": "hm"}`

	result, err := parseClassifyResponse(raw)
	require.NoError(t, err)
	assert.False(t, result.IsTransaction)
	assert.Nil(t, result.TransactionDetails)
	assert.Equal(t, "hm", result.ResponseMessage)
}

func TestParseClassifyResponse_MissingMessageGetsDefault(t *testing.T) {
	raw := `{"isTransaction": false, "transactionDetails": null, "responseMessage": ""}`

	result, err := parseClassifyResponse(raw)
	require.NoError(t, err)
	assert.False(t, result.IsTransaction)
	assert.NotEmpty(t, result.ResponseMessage, "responseMessage must always be present")
}

func TestParseClassifyResponse_NotJSON(t *testing.T) {
	_, err := parseClassifyResponse("sorry, I cannot help with that")
	assert.Error(t, err)
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain object", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"chatter around object", "Here you go:\n{\"a\":1}\nHope that helps!", `{"a":1}`},
		{"leading whitespace", "  \n {\"a\":1} ", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanModelJSON(tt.raw))
		})
	}
}

func TestApplyUserRules_FirstMatchWinsOverModelCategory(t *testing.T) {
	details := &TransactionDetails{Description: "Corrida de Uber até o centro", Category: "Outros"}
	rules := []KeywordRule{
		{Keyword: "ifood", Category: "Alimentação"},
		{Keyword: "uber", Category: "Transporte"},
		{Keyword: "corrida", Category: "Lazer"},
	}

	fired := ApplyUserRules(details, "paguei 25 reais", rules)
	assert.True(t, fired)
	assert.Equal(t, "Transporte", details.Category, "user rule must override the model's category")
}

func TestApplyUserRules_MatchesMessageTextCaseInsensitive(t *testing.T) {
	details := &TransactionDetails{Description: "Assinatura mensal", Category: "Outros"}
	rules := []KeywordRule{{Keyword: "NETFLIX", Category: "Streaming"}}

	fired := ApplyUserRules(details, "renovei a netflix hoje", rules)
	assert.True(t, fired)
	assert.Equal(t, "Streaming", details.Category)
}

func TestApplyUserRules_NoMatchLeavesCategory(t *testing.T) {
	details := &TransactionDetails{Description: "Padaria", Category: "Alimentação"}
	rules := []KeywordRule{{Keyword: "uber", Category: "Transporte"}}

	fired := ApplyUserRules(details, "pão de queijo", rules)
	assert.False(t, fired)
	assert.Equal(t, "Alimentação", details.Category)
}

func TestBuildClassifyPrompt_ContainsTaxonomyAndRules(t *testing.T) {
	prompt := buildClassifyPrompt(ClassifyRequest{
		Text:              "gastei 50 no mercado",
		IncomeCategories:  []string{"Salário"},
		ExpenseCategories: []string{"Mercado", "Transporte"},
		UserRules:         []KeywordRule{{Keyword: "uber", Category: "Transporte"}},
	})

	assert.Contains(t, prompt, "Salário")
	assert.Contains(t, prompt, "Mercado")
	assert.Contains(t, prompt, "BINDING USER RULES")
	assert.Contains(t, prompt, "uber")
	assert.Contains(t, prompt, "gastei 50 no mercado")
	assert.True(t, strings.Contains(prompt, "STRICT JSON"))
}
