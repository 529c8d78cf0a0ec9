package catalog

// MusicTable is the bundled music manifest.
var MusicTable = Table{
	Collection: Music,
	Dir:        "music",
	Assets: []Asset{
		{Name: "alarm1getyoass - Output - Stereo Out.m4a", File: "alarm1getyoass - Output - Stereo Out.m4a"},
		{Name: "alarm2personalssitant - Output - Stereo Out.m4a", File: "alarm2personalssitant - Output - Stereo Out.m4a"},
		{Name: "alarm3deathtoeverything - Output - Stereo Out.m4a", File: "alarm3deathtoeverything - Output - Stereo Out.m4a"},
		{Name: "alarm4gilbert - Output - Stereo Out.m4a", File: "alarm4gilbert - Output - Stereo Out.m4a"},
		{Name: "alarm5pete - Output - Stereo Out.m4a", File: "alarm5pete - Output - Stereo Out.m4a"},
		{Name: "alarm6zizek - Output - Stereo Out.m4a", File: "alarm6zizek - Output - Stereo Out.m4a"},
		{Name: "alarm7recovery - Output - Stereo Out.m4a", File: "alarm7recovery - Output - Stereo Out.m4a"},
		{Name: "Easy Rock Morning - Output - Stereo Out.aac", File: "Easy Rock Morning - Output - Stereo Out.aac"},
		{Name: "Hayden in the morning - Output - Stereo Out.aac", File: "Hayden in the morning - Output - Stereo Out.aac"},
		{Name: "Smithering Smitters Doing a bit - Output - Stereo Out.aac", File: "Smithering Smitters Doing a bit - Output - Stereo Out.aac"},
	},
}

// SpeechTable is the bundled speech manifest.
var SpeechTable = Table{
	Collection: Speech,
	Dir:        "speech",
	Assets: []Asset{
		{Name: "BIG BOOK ESQE - Output - Stereo Out.aac", File: "BIG BOOK ESQE - Output - Stereo Out.aac"},
		{Name: "DEATH TO ALL - Output - Stereo Out.aac", File: "DEATH TO ALL - Output - Stereo Out.aac"},
		{Name: "JIVES THE BRITISH BUTLER - Output - Stereo Out.aac", File: "JIVES THE BRITISH BUTLER - Output - Stereo Out.aac"},
		{Name: "NOT SO SENSITIVE COACH - Output - Stereo Out.aac", File: "NOT SO SENSITIVE COACH - Output - Stereo Out.aac"},
		// The asset file carries a doubled S; the manifest name does not.
		{Name: "SERENITY AND THIRD STEP - Output - Stereo Out.aac", File: "SSERENITY AND THIRD STEP - Output - Stereo Out.aac"},
		{Name: "THIS IS NOT GILBERT - Output - Stereo Out.aac", File: "THIS IS NOT GILBERT - Output - Stereo Out.aac"},
		{Name: "THIS IS NOT PETE - Output - Stereo Out.aac", File: "THIS IS NOT PETE - Output - Stereo Out.aac"},
		{Name: "THIS IS NOT ZIZEK - Output - Stereo Out.aac", File: "THIS IS NOT ZIZEK - Output - Stereo Out.aac"},
		{Name: "Anxieties - Output - Stereo Out.aac", File: "Anxieties - Output - Stereo Out.aac"},
		{Name: "PROJECTIVE IDENTIFICATION - Output - Stereo Out.aac", File: "PROJECTIVE IDENTIFICATION - Output - Stereo Out.aac"},
		{Name: "SENSITIVE COACH - Output - Stereo Out.aac", File: "SENSITIVE COACH - Output - Stereo Out.aac"},
		{Name: "Shulchan Aruch - Output - Stereo Out.aac", File: "Shulchan Aruch - Output - Stereo Out.aac"},
		{Name: "WHATSAP - Output - Stereo Out.aac", File: "WHATSAP - Output - Stereo Out.aac"},
		{Name: "big book strong version - Output - Stereo Out.aac", File: "big book strong version - Output - Stereo Out.aac"},
	},
}
