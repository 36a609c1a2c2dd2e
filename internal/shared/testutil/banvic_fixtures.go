package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"banvicdash/internal/config"
)

// Fixture CSV contents shaped like the BanVic extracts. Extra columns are
// present on purpose; loaders must ignore them.
//
// Notable rows:
//   - account 1003 belongs to customer 99, who is absent from customers
//   - transaction 6 references account 9999, which does not exist
//   - transaction 7 has an unparseable timestamp
//   - transaction 8 has an unparseable amount
//   - proposal 504 has a blank status
const (
	BranchesCSV = `cod_agencia,nome,endereco,cidade,uf,data_abertura,tipo_agencia
1,Agência Centro,Rua A 1,São Paulo,SP,2010-01-01,Física
2,Agência Norte,Rua B 2,Recife,PE,2012-05-10,Física
3,Agência Digital,Online,São Paulo,SP,2020-01-01,Digital
`

	CustomersCSV = `cod_cliente,primeiro_nome,ultimo_nome,email,tipo_cliente
10,Ana,Silva,ana@example.com,PF
11,Bruno,Costa,bruno@example.com,PF
12,Carla,Souza,carla@example.com,PF
`

	EmployeeBranchesCSV = `cod_colaborador,cod_agencia
100,1
101,2
`

	EmployeesCSV = `cod_colaborador,primeiro_nome,ultimo_nome,email
100,Paula,Lima,paula@banvic.com
101,Rafael,Dias,rafael@banvic.com
`

	AccountsCSV = `num_conta,cod_cliente,cod_agencia,cod_colaborador,tipo_conta,saldo_total
1000,10,1,100,PF,1500.00
1001,11,1,100,PF,200.00
1002,12,2,101,PF,9000.10
1003,99,2,,PF,0
`

	ProposalsCSV = `cod_proposta,cod_cliente,cod_colaborador,data_entrada_proposta,taxa_juros_mensal,valor_proposta,status_proposta
500,10,100,2024-01-05 10:00:00 UTC,0.02,10000,Aprovada
501,11,100,2024-01-18 09:00:00 UTC,0.03,5000,Em análise
502,12,101,2024-01-25 12:00:00 UTC,0.02,7000,Aprovada
503,10,100,2023-12-20 08:00:00 UTC,0.04,3000,Recusada
504,11,,2024-01-12 08:00:00 UTC,0.01,1000,
`

	TransactionsCSV = `cod_transacao,num_conta,data_transacao,nome_transacao,valor_transacao
1,1000,2024-01-10 09:30:00 UTC,Pix - Realizado,-100.50
2,1000,2024-01-10 15:00:00 UTC,Pix - Recebido,200.00
3,1001,2024-01-16 11:00:00 UTC,Saque,50.25
4,1002,2024-01-20 10:00:00 UTC,Compra Crédito,300
5,1003,2024-01-15 23:59:59.123456 UTC,Depósito em espécie,10
6,9999,2024-01-11 08:00:00 UTC,Pix - Realizado,5
7,1001,not-a-date,Pix - Realizado,7
8,1002,2024-01-21 10:00:00 UTC,Pix - Recebido,abc
`
)

// FixtureFiles maps each default file name to its fixture content.
func FixtureFiles() map[string]string {
	return map[string]string{
		"agencias.csv":            BranchesCSV,
		"clientes.csv":            CustomersCSV,
		"colaborador_agencia.csv": EmployeeBranchesCSV,
		"colaboradores.csv":       EmployeesCSV,
		"contas.csv":              AccountsCSV,
		"propostas_credito.csv":   ProposalsCSV,
		"transacoes.csv":          TransactionsCSV,
	}
}

// WriteFixtures writes the fixture tables into a fresh temp directory and
// returns a data config pointing at it. overrides replaces individual files
// by name; an empty override removes the file.
func WriteFixtures(t *testing.T, overrides map[string]string) config.DataConfig {
	t.Helper()

	dir := t.TempDir()
	files := FixtureFiles()
	for name, content := range overrides {
		files[name] = content
	}

	for name, content := range files {
		if content == "" {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("write fixture %s: %v", name, err)
		}
	}

	cfg := config.Default().Data
	cfg.Dir = dir
	return cfg
}
