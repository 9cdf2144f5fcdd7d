package conversation_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/genie-cli/genie/pkg/conversation"
)

var _ = Describe("Route", func() {
	It("selects data mode for the data agent without deep think", func() {
		mode := conversation.Route(conversation.ProductDataAgent, false)
		Expect(mode).To(Equal(conversation.ModeData))
	})

	It("selects agent mode for the data agent with deep think", func() {
		mode := conversation.Route(conversation.ProductDataAgent, true)
		Expect(mode).To(Equal(conversation.ModeAgent))
	})

	It("selects agent mode for every other product", func() {
		Expect(conversation.Route(conversation.ProductAgent, false)).To(Equal(conversation.ModeAgent))
		Expect(conversation.Route(conversation.ProductAgent, true)).To(Equal(conversation.ModeAgent))
		Expect(conversation.Route(conversation.Product("unknown"), false)).To(Equal(conversation.ModeAgent))
	})

	It("is deterministic across repeated derivations", func() {
		for i := 0; i < 5; i++ {
			Expect(conversation.Route(conversation.ProductDataAgent, false)).To(Equal(conversation.ModeData))
		}
	})
})
