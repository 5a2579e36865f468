// =============================================================================
// 📦 测试数据工厂 - 参与者
// =============================================================================
package fixtures

import "github.com/BaSui01/roundtable/agent/conversation"

// Panel 返回三个常用测试参与者：alice、bob、carol
func Panel() []conversation.Participant {
	return []conversation.Participant{
		{Name: "alice", Expertise: "distributed systems", Role: "engineer"},
		{Name: "bob", Expertise: "product strategy", Role: "product manager"},
		{Name: "carol", Expertise: "user research", Role: "researcher"},
	}
}

// Participant 按名称构造参与者
func Participant(name, expertise string) conversation.Participant {
	return conversation.Participant{Name: name, Expertise: expertise}
}
