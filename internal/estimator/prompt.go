package estimator

import "fmt"

// BuildPrompt renders a task description into the model prompt. The prompt
// pins down an exact JSON schema and a worked example of the reasoning
// narrative; nothing is validated here, only requested.
func BuildPrompt(task string) string {
	return fmt.Sprintf(promptTemplate, task)
}

const promptTemplate = `You are a software project management assistant specialized in Kanban-based workflows.
Analyze the task below and return a STRICTLY VALID JSON response.

TASK DESCRIPTION:
%[1]s

Return JSON in this EXACT format:
{
    "title": "Short action-based title (3-6 words, start with verb like Fix, Add, Update, Create)",
    "estimated_time": "string (e.g., '2 days', '1 week', '3 weeks')",
    "priority": "string (Low/Medium/High)",
    "complexity_level": "string (Low/Medium/High)",
    "dependencies": ["array of prerequisite tasks or systems"],
    "required_access": [
        "Specific access requirement 1 (e.g., 'GitHub Repository Write Access')",
        "Specific access requirement 2 (e.g., 'AWS Lambda Deployment Console')",
        "Specific access requirement 3 (e.g., 'PostgreSQL Database Admin Rights')"
    ],
    "suggested_labels": ["array", "of", "labels"],
    "reasoning": "MUST BE IN THIS EXACT FORMAT (see below)"
}

CRITICAL: The "reasoning" field MUST follow this EXACT structure:

"Phase 1: Technical Breakdown
Overview: [Write 3-4 concise technical sentences describing the approach, architecture, or key technologies involved. Be specific about the technical stack and implementation strategy.]

Phase 1: [First milestone name]
- [Specific task 1]
- [Specific task 2]
- [Specific task 3]

Phase 2: [Second milestone name]
- [Specific task 1]
- [Specific task 2]
- [Specific task 3]

Phase 3: [Third milestone name]
- [Specific task 1]
- [Specific task 2]
- [Specific task 3]"

EXAMPLE of correct "reasoning" format:
"Phase 1: Technical Breakdown
Overview: Relational SQL database with API-driven lead ingestion and AI intent-scoring. PostgreSQL/Supabase backend with REST API webhooks for multi-channel integration. LLM-powered qualification engine for automated lead scoring.

Phase 1: Setup PostgreSQL/Supabase DB and multi-channel API webhooks
- Configure PostgreSQL database schema with lead tracking tables
- Set up Supabase authentication and row-level security
- Create API webhook endpoints for lead ingestion from multiple channels

Phase 2: Deploy LLM-agent for lead qualification and scoring
- Integrate OpenAI/Claude API for natural language intent analysis
- Implement automated lead scoring algorithm based on interaction patterns
- Create qualification workflow with automated triggers and notifications

Phase 3: Launch Next.js dashboard for sales status management
- Build responsive dashboard UI with real-time lead status updates
- Implement advanced filtering, search, and sorting functionality
- Deploy production environment with monitoring and analytics"

MANDATORY REQUIREMENTS:
1. Overview MUST be 3-4 technical sentences describing the approach
2. MUST have exactly 3 phases (Phase 1, Phase 2, Phase 3)
3. Each phase MUST have 3 specific, actionable tasks with dash bullets (-)
4. Use proper line breaks between sections
5. Be specific to the task: "%[1]s"

IMPORTANT for required_access:
- Be specific about exact access needed for THIS TASK
- Include service/tool name (GitHub, AWS, PostgreSQL, Slack, Telegram, etc.)
- Specify access type (Read, Write, Admin, Console, etc.)
- Examples:
  * "GitHub Repository Write Access"
  * "AWS Lambda Deployment Console"
  * "PostgreSQL Database Admin Rights"
  * "Slack Workspace Admin Permissions"
  * "Telegram BotFather Access"
  * "OAuth Provider Configuration Panel"

Analyze the task and provide realistic, practical estimates.
`
