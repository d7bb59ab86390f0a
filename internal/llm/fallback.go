package llm

import "strings"

type fallbackKind string

const (
	fallbackLonely   fallbackKind = "lonely"
	fallbackFear     fallbackKind = "fear"
	fallbackAnxious  fallbackKind = "anxious"
	fallbackSad      fallbackKind = "sad"
	fallbackHopeless fallbackKind = "hopeless"
	fallbackGeneric  fallbackKind = "generic"
)

var fallbackResponses = map[fallbackKind]string{
	fallbackLonely: "My child, I understand that loneliness can feel like a heavy cloak. But hear this truth: you are never truly alone.\n\n" +
		"📖 Deuteronomy 31:6 - 'Be strong and courageous. Do not be afraid or terrified, for the LORD your God goes with you; he will never leave you nor forsake you.'\n\n" +
		"📖 Psalm 139:7-8 - 'Where can I go from your Spirit? Where can I flee from your presence? If I go up to the heavens, you are there; if I make my bed in the depths, you are there.'\n\n" +
		"God's love surrounds you always, and His presence is with you even in the quietest moments. Reach out to Him now in prayer, beloved.",
	fallbackFear: "Beloved, I see the fear in your heart. Know that God is greater than any fear you face.\n\n" +
		"📖 Psalm 46:1 - 'God is our refuge and strength, an ever-present help in trouble.'\n\n" +
		"📖 Isaiah 41:10 - 'So do not fear, for I am with you; do not be dismayed, for I am your God. I will strengthen you and help you; I will uphold you with my righteous right hand.'\n\n" +
		"📖 2 Timothy 1:7 - 'For the Spirit God gave us does not make us timid, but gives us power, love and self-discipline.'\n\n" +
		"Place your trust in Him, and let His perfect love cast out all fear.",
	fallbackAnxious: "My dear child, I hear the anxiety weighing on your mind. Let me remind you of God's care for you.\n\n" +
		"📖 Philippians 4:6-7 - 'Do not be anxious about anything, but in every situation, by prayer and petition, with thanksgiving, present your requests to God. And the peace of God, which transcends all understanding, will guard your hearts and your minds in Christ Jesus.'\n\n" +
		"📖 Matthew 11:28 - 'Come to me, all you who are weary and burdened, and I will give you rest.'\n\n" +
		"Bring your worries to the Lord in prayer. He cares deeply for you and will give you peace that surpasses all understanding.",
	fallbackSad: "My child, it is okay to feel sad. Even Jesus wept. God sees every tear you shed and holds them precious.\n\n" +
		"📖 Psalm 34:18 - 'The LORD is close to the brokenhearted and saves those who are crushed in spirit.'\n\n" +
		"📖 Revelation 21:4 - 'He will wipe every tear from their eyes. There will be no more death or mourning or crying or pain.'\n\n" +
		"Let your tears flow freely before God, beloved. He sits with you in your sorrow and promises to turn your mourning into dancing.",
	fallbackHopeless: "Beloved, even in the darkest of valleys, there is hope. You are not forgotten.\n\n" +
		"📖 Romans 15:13 - 'May the God of hope fill you with all joy and peace as you trust in him, so that you may overflow with hope by the power of the Holy Spirit.'\n\n" +
		"📖 Lamentations 3:22-23 - 'Because of the LORD's great love we are not consumed, for his compassions never fail. They are new every morning; great is your faithfulness.'\n\n" +
		"His mercies are new every morning, so tomorrow holds fresh grace and possibility that you cannot yet see. Hold on, dear one.",
	fallbackGeneric: "My child, thank you for sharing your heart with me. Whatever you are carrying right now, God sees it and cares deeply for you.\n\n" +
		"📖 Romans 8:38-39 - 'For I am convinced that neither death nor life, neither angels nor demons, neither the present nor the future, nor any powers, neither height nor depth, nor anything else in all creation, will be able to separate us from the love of God.'\n\n" +
		"📖 Psalm 55:22 - 'Cast your cares on the LORD and he will sustain you; he will never let the righteous be shaken.'\n\n" +
		"You are precious in His sight, beloved, and He has wonderful plans for your life. Bring whatever is on your heart to Him in prayer today.",
}

// Groups are checked in order; the first group with a matching keyword wins.
var fallbackKeywords = []struct {
	keywords []string
	kind     fallbackKind
}{
	{[]string{"lonely", "alone", "isolated", "abandoned", "left out"}, fallbackLonely},
	{[]string{"fear", "scared", "afraid", "frightened", "terrified", "phobia"}, fallbackFear},
	{[]string{"anxious", "anxiety", "worried", "worry", "stress", "stressed", "nervous"}, fallbackAnxious},
	{[]string{"sad", "sadness", "cry", "crying", "tears", "sorrowful", "sorrow", "grief", "grieving"}, fallbackSad},
	{[]string{"hopeless", "hopelessness", "no hope", "give up", "giving up", "despair", "desperate"}, fallbackHopeless},
	{[]string{"angry", "anger", "furious", "mad", "rage", "frustrated"}, fallbackGeneric},
	{[]string{"lost", "confused", "direction", "purpose", "meaning", "identity"}, fallbackGeneric},
	{[]string{"depressed", "depression", "empty", "numb", "dark", "darkness"}, fallbackGeneric},
	{[]string{"love", "loved", "unloved", "worth", "worthy", "valuable"}, fallbackGeneric},
	{[]string{"strength", "tired", "exhausted", "weak", "weary", "can't go on"}, fallbackGeneric},
}

func classify(userText string) fallbackKind {
	lower := strings.ToLower(userText)
	for _, group := range fallbackKeywords {
		for _, k := range group.keywords {
			if strings.Contains(lower, k) {
				return group.kind
			}
		}
	}
	return fallbackGeneric
}

// FallbackResponse picks the canned comfort message for userText.
func FallbackResponse(userText string) string {
	return fallbackResponses[classify(userText)]
}
