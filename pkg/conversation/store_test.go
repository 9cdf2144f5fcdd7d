package conversation_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/genie-cli/genie/pkg/conversation"
)

var _ = Describe("Store", func() {
	var store *conversation.Store[conversation.AgentTurn]

	BeforeEach(func() {
		store = conversation.NewStore[conversation.AgentTurn]()
	})

	It("appends turns and issues sequential handles", func() {
		h1 := store.Append(conversation.AgentTurn{Query: "one"})
		h2 := store.Append(conversation.AgentTurn{Query: "two"})

		Expect(h1).NotTo(Equal(h2))
		Expect(store.Len()).To(Equal(2))

		turn, ok := store.Get(h1)
		Expect(ok).To(BeTrue())
		Expect(turn.Query).To(Equal("one"))
	})

	It("updates a turn in place through its handle", func() {
		h := store.Append(conversation.AgentTurn{Query: "q", Loading: true})

		turn, _ := store.Get(h)
		turn.Response = "done"
		turn.Loading = false
		Expect(store.Update(h, turn)).To(BeTrue())

		got, _ := store.Get(h)
		Expect(got.Response).To(Equal("done"))
		Expect(got.Loading).To(BeFalse())
		Expect(store.Len()).To(Equal(1), "update must not append")
	})

	It("updates an earlier turn without disturbing later ones", func() {
		first := store.Append(conversation.AgentTurn{Query: "first", Loading: true})
		store.Append(conversation.AgentTurn{Query: "second", Loading: true})

		turn, _ := store.Get(first)
		turn.Response = "late event for first"
		store.Update(first, turn)

		turns := store.Turns()
		Expect(turns[0].Response).To(Equal("late event for first"))
		Expect(turns[1].Response).To(BeEmpty())
	})

	It("rejects handles it never issued", func() {
		Expect(store.Update(conversation.Handle(5), conversation.AgentTurn{})).To(BeFalse())

		_, ok := store.Get(conversation.Handle(-1))
		Expect(ok).To(BeFalse())
	})

	It("returns snapshots that later mutations do not affect", func() {
		h := store.Append(conversation.AgentTurn{Query: "q"})
		snapshot := store.Turns()

		turn, _ := store.Get(h)
		turn.Response = "mutated"
		store.Update(h, turn)

		Expect(snapshot[0].Response).To(BeEmpty())
	})

	It("notifies subscribers with the affected handle", func() {
		var seen []conversation.Handle
		store.Subscribe(func(h conversation.Handle) {
			seen = append(seen, h)
		})

		h1 := store.Append(conversation.AgentTurn{Query: "a"})
		h2 := store.Append(conversation.AgentTurn{Query: "b"})
		turn, _ := store.Get(h1)
		store.Update(h1, turn)

		Expect(seen).To(Equal([]conversation.Handle{h1, h2, h1}))
	})

	It("lets subscribers read the store during notification", func() {
		var lengths []int
		store.Subscribe(func(conversation.Handle) {
			lengths = append(lengths, store.Len())
		})

		store.Append(conversation.AgentTurn{})
		store.Append(conversation.AgentTurn{})

		Expect(lengths).To(Equal([]int{1, 2}))
	})
})
