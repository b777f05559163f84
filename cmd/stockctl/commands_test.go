package main

import (
	"bytes"
	"context"
	"flag"
	"strings"
	"testing"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mamadbah2/jewelstock/internal/domain/models"
	"github.com/mamadbah2/jewelstock/internal/repository/csvfile"
)

func run(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(fs)
	require.NoError(t, fs.Parse(args))
	return cmd.Execute(context.Background(), fs)
}

func TestHashpwFromStdin(t *testing.T) {
	var out bytes.Buffer
	cmd := &hashpwCmd{out: &out, in: strings.NewReader("hoseki\n")}

	require.Equal(t, subcommands.ExitSuccess, run(t, cmd))
	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("hoseki")))

	out.Reset()
	empty := &hashpwCmd{out: &out, in: strings.NewReader("")}
	assert.Equal(t, subcommands.ExitUsageError, run(t, empty))
}

func TestSummaryAndLog(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_DATA_DIR", dir)
	t.Setenv("APP_BASES", "神戸,横浜")
	t.Setenv("TIMEZONE", "UTC")

	store, err := csvfile.NewRecordStore(dir, []string{"神戸", "横浜"}, nil)
	require.NoError(t, err)
	rec := models.Record{Metal: "K18", Item: "ネックレス", CenterStone: "ルビー", Code: "N-7", ListPrice: "50000", WholesaleCode: "20000", User: "佐藤"}
	require.NoError(t, store.Save(context.Background(), "横浜", []models.Record{rec}))

	log, err := csvfile.NewMovementLog(dir+"/log.csv", nil, nil)
	require.NoError(t, err)
	require.NoError(t, log.Append(context.Background(), models.NewLogEntry(models.OperationReceipt, "横浜", rec, "")))

	var out bytes.Buffer
	require.Equal(t, subcommands.ExitSuccess, run(t, &summaryCmd{out: &out}))
	assert.Contains(t, out.String(), "横浜")
	assert.Contains(t, out.String(), "¥50,000")

	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, &logCmd{out: &out}, "-base", "横浜"))
	assert.Contains(t, out.String(), "N-7")

	out.Reset()
	assert.Equal(t, subcommands.ExitUsageError, run(t, &logCmd{out: &out}, "-op", "返品"))

	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, &logCmd{out: &out}, "-csv"))
	assert.True(t, strings.HasPrefix(out.String(), "区分,拠点"))
}
