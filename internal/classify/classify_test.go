package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zheng/archscan/internal/graph"
)

func TestType(t *testing.T) {
	tests := []struct {
		path    string
		content string
		want    graph.NodeType
	}{
		{"src/api/users/route.ts", "", graph.NodeTypeRoute},
		{"pages/api/login.ts", "", graph.NodeTypeRoute},
		{"src/hooks/auth.ts", "", graph.NodeTypeHook},
		{"src/features/useCart.ts", "", graph.NodeTypeHook},
		{"src/store/cart.ts", "", graph.NodeTypeStore},
		{"src/stores/user.ts", "", graph.NodeTypeStore},
		{"src/repositories/user.ts", "", graph.NodeTypeRepository},
		{"src/repository/order.ts", "", graph.NodeTypeRepository},
		{"src/services/billing.ts", "", graph.NodeTypeService},
		{"src/utils/format.ts", "", graph.NodeTypeUtility},
		{"src/lib/date.js", "", graph.NodeTypeUtility},
		{"src/helpers/dom.js", "", graph.NodeTypeUtility},
		{"next.config.js", "", graph.NodeTypeConfiguration},
		{"src/appConfig.ts", "", graph.NodeTypeConfiguration},
		{"tailwind.config.ts", "", graph.NodeTypeConfiguration},
		{"src/config/index.ts", "", graph.NodeTypeConfiguration},
		{"src/components/ConfigPanel.tsx", "", graph.NodeTypeComponent},
		{"src/features/configure.ts", "", graph.NodeTypeModule},
		{"src/components/Button.tsx", "", graph.NodeTypeComponent},
		{"src/components/button.styles.ts", "", graph.NodeTypeModule},
		{"src/features/Card.tsx", "export default function Card() {}", graph.NodeTypeComponent},
		{"src/features/card.tsx", "export const helper = 1", graph.NodeTypeModule},
		{"src/features/Card.ts", "export default function Card() {}", graph.NodeTypeModule},
		{"src/index.ts", "", graph.NodeTypeModule},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			var content []byte
			if tt.content != "" {
				content = []byte(tt.content)
			}
			assert.Equal(t, tt.want, Type(tt.path, content))
		})
	}
}

func TestLayer(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"src/server/db.ts", "server"},
		{"src/services/user.ts", "server"},
		{"prisma/client.ts", "server"},
		{"app/api/route.ts", "server"},
		{"src/integrations/stripe.ts", "external"},
		{"src/adapters/http.ts", "external"},
		{"src/components/Nav.tsx", "presentation"},
		{"src/layouts/Main.tsx", "presentation"},
		{"src/hooks/useUser.ts", "client"},
		{"src/state/store.ts", "client"},
		{"src/utils/format.ts", ""},
		{"index.ts", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			l := Layer(tt.path)
			if tt.want == "" {
				assert.Nil(t, l)
				return
			}
			if assert.NotNil(t, l) {
				assert.Equal(t, tt.want, string(*l))
			}
		})
	}
}
