package view

import (
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/spec-kit/ticketbot/internal/domain"
	apperrors "github.com/spec-kit/ticketbot/pkg/util/errorutil"
)

// Callback ids of modal forms.
const (
	NewTicketCallbackID = "new_ticket"
	ClaimCallbackID     = "claim_ticket"
	ReassignCallbackID  = "reassign_ticket"
	ResultCallbackID    = "ticket_result"
)

// Block and action ids of form inputs.
const (
	CampaignBlockID      = "campaign_block"
	CampaignActionID     = "campaign_select"
	IssueTypeBlockID     = "issue_type_block"
	IssueTypeActionID    = "issue_type_select"
	PriorityBlockID      = "priority_block"
	PriorityActionID     = "priority_select"
	DetailsBlockID       = "details_block"
	DetailsActionID      = "details_input"
	LinkBlockID          = "salesforce_link_block"
	LinkActionID         = "salesforce_link_input"
	AttachmentBlockID    = "attachment_block"
	AttachmentActionID   = "attachment_input"
	CommentBlockID       = "comment_block"
	CommentActionID      = "comment_input"
	AssigneeBlockID      = "assignee_block"
	AssigneeActionID     = "assignee_select"
	maxCommentLength     = 1000
	maxDetailsInputChars = 2500
)

// fieldBlocks maps validation detail keys to the input block showing them.
var fieldBlocks = map[string]string{
	"campaign":      CampaignBlockID,
	"issue_type":    IssueTypeBlockID,
	"priority":      PriorityBlockID,
	"details":       DetailsBlockID,
	"external_link": LinkBlockID,
	"attachment":    AttachmentBlockID,
	"assignee":      AssigneeBlockID,
	"comment":       CommentBlockID,
}

// NewTicketForm is the parsed submission form.
type NewTicketForm struct {
	Campaign     string
	IssueType    string
	Priority     domain.TicketPriority
	Details      string
	ExternalLink *string
	Attachment   *string
}

// NewTicketModal renders the submission form.
func (r *Renderer) NewTicketModal() slack.ModalViewRequest {
	campaigns := make([]*slack.OptionBlockObject, 0, len(r.catalog.Campaigns))
	for _, c := range r.catalog.Campaigns {
		campaigns = append(campaigns, option(c.Value, c.DisplayLabel()))
	}
	issues := make([]*slack.OptionBlockObject, 0, len(r.catalog.IssueTypes))
	for _, it := range r.catalog.IssueTypes {
		issues = append(issues, option(it.Value, it.DisplayLabel()))
	}
	priorities := make([]*slack.OptionBlockObject, 0, len(domain.TicketPriorities))
	for _, p := range domain.TicketPriorities {
		priorities = append(priorities, option(string(p), PriorityLabel(p)))
	}

	details := slack.NewPlainTextInputBlockElement(plain("Describe the issue"), DetailsActionID)
	details.Multiline = true
	details.MaxLength = maxDetailsInputChars

	link := slack.NewInputBlock(LinkBlockID, plain("Salesforce Link"), nil,
		slack.NewPlainTextInputBlockElement(plain("https://..."), LinkActionID))
	link.Optional = true
	attachment := slack.NewInputBlock(AttachmentBlockID, plain("File Link"), plain("Paste a link to a screenshot or file, if any"),
		slack.NewPlainTextInputBlockElement(plain("https://..."), AttachmentActionID))
	attachment.Optional = true

	return slack.ModalViewRequest{
		Type:       slack.VTModal,
		CallbackID: NewTicketCallbackID,
		Title:      plain("Submit a Ticket"),
		Submit:     plain("Submit"),
		Close:      plain("Cancel"),
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			slack.NewInputBlock(CampaignBlockID, plain("Campaign"), nil,
				slack.NewOptionsSelectBlockElement(slack.OptTypeStatic, plain("Select a campaign"), CampaignActionID, campaigns...)),
			slack.NewInputBlock(IssueTypeBlockID, plain("Issue Type"), nil,
				slack.NewOptionsSelectBlockElement(slack.OptTypeStatic, plain("Select an issue"), IssueTypeActionID, issues...)),
			slack.NewInputBlock(PriorityBlockID, plain("Priority"), nil,
				slack.NewOptionsSelectBlockElement(slack.OptTypeStatic, plain("Select priority"), PriorityActionID, priorities...)),
			slack.NewInputBlock(DetailsBlockID, plain("Details"), nil, details),
			link,
			attachment,
		}},
	}
}

// ParseNewTicketForm reads the submission form values. Missing fields come
// back empty; the state machine validates them.
func ParseNewTicketForm(values map[string]map[string]slack.BlockAction) NewTicketForm {
	form := NewTicketForm{
		Campaign:  values[CampaignBlockID][CampaignActionID].SelectedOption.Value,
		IssueType: values[IssueTypeBlockID][IssueTypeActionID].SelectedOption.Value,
		Priority:  domain.TicketPriority(values[PriorityBlockID][PriorityActionID].SelectedOption.Value),
		Details:   values[DetailsBlockID][DetailsActionID].Value,
	}
	if v := strings.TrimSpace(values[LinkBlockID][LinkActionID].Value); v != "" {
		form.ExternalLink = &v
	}
	if v := strings.TrimSpace(values[AttachmentBlockID][AttachmentActionID].Value); v != "" {
		form.Attachment = &v
	}
	return form
}

// ClaimModal collects an optional comment before claiming.
func (r *Renderer) ClaimModal(t domain.Ticket, metadata string) slack.ModalViewRequest {
	return slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      ClaimCallbackID,
		Title:           plain("Assign " + TicketRef(t.ID)),
		Submit:          plain("Confirm"),
		Close:           plain("Cancel"),
		PrivateMetadata: metadata,
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			section(fmt.Sprintf("Assign *%s* (%s / %s) to yourself?", TicketRef(t.ID), t.Campaign, t.IssueType)),
			commentInput(),
		}},
	}
}

// ReassignModal collects the new assignee and an optional comment.
func (r *Renderer) ReassignModal(t domain.Ticket, metadata string) slack.ModalViewRequest {
	users := slack.NewOptionsSelectBlockElement(slack.OptTypeUser, plain("Select a user"), AssigneeActionID)
	if t.IsAssigned() {
		users.InitialUser = t.AssignedTo
	}
	return slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      ReassignCallbackID,
		Title:           plain("Reassign " + TicketRef(t.ID)),
		Submit:          plain("Confirm"),
		Close:           plain("Cancel"),
		PrivateMetadata: metadata,
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			slack.NewInputBlock(AssigneeBlockID, plain("New Assignee"), nil, users),
			commentInput(),
		}},
	}
}

func commentInput() *slack.InputBlock {
	el := slack.NewPlainTextInputBlockElement(plain("Add a comment (optional)"), CommentActionID)
	el.Multiline = true
	el.MaxLength = maxCommentLength
	block := slack.NewInputBlock(CommentBlockID, plain("Comment"), nil, el)
	block.Optional = true
	return block
}

// ParseComment reads the optional comment of a claim or reassign form.
func ParseComment(values map[string]map[string]slack.BlockAction) string {
	return strings.TrimSpace(values[CommentBlockID][CommentActionID].Value)
}

// ParseAssignee reads the selected user of a reassign form.
func ParseAssignee(values map[string]map[string]slack.BlockAction) string {
	return values[AssigneeBlockID][AssigneeActionID].SelectedUser
}

// SubmittedModal confirms a submission in place of the form.
func (r *Renderer) SubmittedModal(t domain.Ticket) slack.ModalViewRequest {
	return resultModal("Ticket Submitted", fmt.Sprintf(
		"✅ Ticket *%s* was submitted.\n\n📂 %s / %s · %s\n\nThe support team has been notified.",
		TicketRef(t.ID), t.Campaign, r.catalog.IssueTypeLabel(t.IssueType), PriorityLabel(t.Priority)))
}

// ErrorModal replaces a surface whose data could not be resolved.
func ErrorModal(message string) slack.ModalViewRequest {
	return resultModal("Something went wrong", "❌ "+message)
}

func resultModal(title, text string) slack.ModalViewRequest {
	return slack.ModalViewRequest{
		Type:       slack.VTModal,
		CallbackID: ResultCallbackID,
		Title:      plain(title),
		Close:      plain("Close"),
		Blocks:     slack.Blocks{BlockSet: []slack.Block{section(text)}},
	}
}

// FieldErrors maps a validation error onto the input blocks of a form. ok is
// false when the error has no field details.
func FieldErrors(err error) (map[string]string, bool) {
	de := apperrors.ToDomainError(err)
	if de == nil || de.Code != apperrors.CodeValidation || len(de.Details) == 0 {
		return nil, false
	}
	out := map[string]string{}
	for field, detail := range de.Details {
		blockID, ok := fieldBlocks[field]
		if !ok {
			continue
		}
		out[blockID] = fmt.Sprint(detail)
	}
	return out, len(out) > 0
}
