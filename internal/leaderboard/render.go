package leaderboard

import (
	"fmt"
	"strings"

	"github.com/okian/tiersync/internal/domain/model"
)

// Render formats a snapshot as the single ranking message.
func Render(snap model.Snapshot, stale bool) string {
	var b strings.Builder
	b.WriteString("🏆 **Top 20 Jogadores do Servidor**\n")
	if stale {
		b.WriteString("O ranking foi carregado da última sessão e será atualizado com a próxima verificação.\n")
	} else {
		b.WriteString("O ranking é atualizado toda vez que o servidor inicia e a cada nova verificação.\n")
	}

	if len(snap.Entries) == 0 {
		b.WriteString("\nNenhum jogador encontrado para o ranking. Use !verificar para se registrar!")
		return b.String()
	}

	b.WriteString("\n")
	for i, entry := range snap.Entries {
		fmt.Fprintf(&b, "**%d.** %s - **Nível %d** (%d ELO)\n",
			i+1, entry.DisplayName, entry.TierLevel, entry.Rating)
	}
	return strings.TrimRight(b.String(), "\n")
}
