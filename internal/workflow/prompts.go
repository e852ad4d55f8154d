package workflow

// Prompt templates for the generation-backed stages. Each template demands
// JSON-only output so responses parse reliably, and carries anti-fabrication
// guards so drafts stay inside the provided material.

const keyPointsPrompt = `Extract 5-8 key bullet points from the text below. Preserve numbers, dates, entities. No marketing fluff.

Return JSON array of objects with this exact format:
[
    {"text": "specific key point", "importance": 0.8},
    {"text": "another key point", "importance": 0.6}
]

Importance should be a float between 0 and 1, where 1 is most important.

Do not include any prose or explanation outside the JSON array.

Text:
%s`

// keyPointsStrictPrompt is the second attempt after a malformed response
const keyPointsStrictPrompt = `Extract 5-8 key bullet points from the text below.

Respond with ONLY a JSON array, no markdown fences, no commentary. Every element must be an object with exactly two keys: "text" (string) and "importance" (number between 0 and 1). Example:
[{"text": "example point", "importance": 0.7}]

Text:
%s`

const platformPrompt = `Create a %s post using the key points below. Follow these constraints:

PLATFORM RULES:
- twitter: <= 280 chars; also propose optional thread of 3-5 tweets (<= 280 each)
- linkedin: 500-1200 chars; professional tone; line breaks ok; no thread
- instagram: 125-2200 chars; warm tone; exactly one call-to-action phrase; up to 10 hashtags

CONTENT STANDARDS:
- Use conditional language for statistics without verified sources ("studies suggest", "reports indicate")
- Include clear attribution for specific figures
- Avoid absolute statements; frame as trends or emerging patterns
- For recent data, state the year explicitly
- Distinguish between verified facts and projections

MENTIONS: only use verified handles for major organizations. Use plain text for others.

Do not invent facts beyond the provided key points.
%s
Return JSON with this exact format:
{
    "primary_text": "main post content here",
    "thread": ["tweet 1", "tweet 2"] or null,
    "hashtags": ["#tag1", "#tag2"],
    "mentions": ["@handle1"]
}

Key points:
%s

Topic hint: %s`

const claimExtractPrompt = `From the combined text below (original content plus generated social posts), extract up to 10 factual claims that should be verified, focusing on:
- Numeric statistics (percentages, dollar amounts, survey results)
- Named studies or reports
- Time-bound claims (specific years, dates)
- Quantifiable business metrics

Prioritize claims that reference specific sources or bold statistics. Ignore generic marketing language.

Return JSON array with this exact format:
[
    {"text": "48 percent of knowledge workers are remote according to a 2025 industry report", "severity": "high"}
]

Severity levels:
- low: general industry facts
- medium: specific statistics without named sources
- high: claims with specific sources, percentages, or dollar amounts

Text:
%s`

const remediationPrompt = `The following social media post has compliance issues. Provide a minimally invasive rewrite that resolves all issues while maintaining the original message, tone and length constraints (%d-%d characters).

Issues to fix:
%s

Original post:
%s

Return only the revised post text, no extra commentary.`
