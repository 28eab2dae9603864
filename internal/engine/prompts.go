package engine

import (
	"fmt"

	"docqa/internal/llm"
)

type prompts struct {
	system       string
	template     string
	insufficient string
}

func (p prompts) render(context, question string) string {
	return fmt.Sprintf(p.template, context, question)
}

var english = prompts{
	system: "You answer questions strictly from the provided context. " +
		"If the context does not contain the answer, reply with exactly " + llm.RefusalToken + ". " +
		"Answer in the language of the question and keep it short.",
	template:     "Context:\n%s\n\nQuestion: %s\nAnswer:",
	insufficient: "The provided context does not contain enough information to answer this question.",
}

var hindi = prompts{
	system: "आप केवल दिए गए संदर्भ के आधार पर प्रश्नों के उत्तर देते हैं। " +
		"यदि संदर्भ में उत्तर नहीं है, तो केवल " + llm.RefusalToken + " लिखें। " +
		"उत्तर प्रश्न की भाषा में और संक्षेप में दें।",
	template:     "संदर्भ:\n%s\n\nप्रश्न: %s\nउत्तर:",
	insufficient: "दिए गए संदर्भ में इस प्रश्न का उत्तर देने के लिए पर्याप्त जानकारी नहीं है।",
}

var french = prompts{
	system: "Tu réponds aux questions uniquement à partir du contexte fourni. " +
		"Si le contexte ne contient pas la réponse, réponds exactement " + llm.RefusalToken + ". " +
		"Réponds dans la langue de la question, brièvement.",
	template:     "Contexte :\n%s\n\nQuestion : %s\nRéponse :",
	insufficient: "Le contexte fourni ne contient pas assez d'informations pour répondre à cette question.",
}
