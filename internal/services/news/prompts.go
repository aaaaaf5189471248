package news

const keywordsSystem = `You generate news search keywords for a listed company.
Return only a JSON array of 3 to 6 short strings: the ticker, the company
name, and the most distinctive products, executives or brands.`

const sentimentSystem = `You classify the overall market sentiment of news headlines about one stock.
Return only a JSON object: {"label": "positive"|"negative"|"neutral"|"mixed",
"score": number from -1 to 1, "summary": one or two sentences}.`

const eventsSystem = `You pick the single most market-moving event for a stock from a numbered,
chronological list of news, filings and earnings releases.
Return only a JSON object: {"primary": <number of the event>, "reason": <one sentence>}.`
