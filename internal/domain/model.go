package domain

import "time"

// MessageModel is the GORM model for the messages table.
type MessageModel struct {
	ID              string    `gorm:"type:varchar(36);primaryKey"`
	Nickname        string    `gorm:"type:varchar(50);not null"`
	Avatar          string    `gorm:"type:text"`
	Room            string    `gorm:"type:varchar(200);index;not null"`
	Content         string    `gorm:"type:text"`
	Type            string    `gorm:"type:varchar(20);not null;default:'text'"`
	FileURL         string    `gorm:"type:text"`
	ReplyToID       string    `gorm:"type:varchar(36)"`
	ReplyToNickname string    `gorm:"type:varchar(50)"`
	ReplyToContent  string    `gorm:"type:text"`
	Timestamp       time.Time `gorm:"index;not null"`
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts the model to a domain Message.
func (m *MessageModel) ToDomain() *Message {
	msg := &Message{
		ID:        m.ID,
		Nickname:  m.Nickname,
		Avatar:    m.Avatar,
		Room:      m.Room,
		Content:   m.Content,
		Type:      MessageType(m.Type),
		FileURL:   m.FileURL,
		Timestamp: m.Timestamp,
	}
	if m.ReplyToID != "" || m.ReplyToNickname != "" {
		msg.ReplyTo = &ReplyRef{
			ID:       m.ReplyToID,
			Nickname: m.ReplyToNickname,
			Content:  m.ReplyToContent,
		}
	}
	return msg
}

// MessageToModel converts a domain Message to its GORM model.
func MessageToModel(msg *Message) *MessageModel {
	model := &MessageModel{
		ID:        msg.ID,
		Nickname:  msg.Nickname,
		Avatar:    msg.Avatar,
		Room:      msg.Room,
		Content:   msg.Content,
		Type:      string(msg.Type),
		FileURL:   msg.FileURL,
		Timestamp: msg.Timestamp,
	}
	if msg.ReplyTo != nil {
		model.ReplyToID = msg.ReplyTo.ID
		model.ReplyToNickname = msg.ReplyTo.Nickname
		model.ReplyToContent = msg.ReplyTo.Content
	}
	return model
}

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	Nickname  string    `gorm:"type:varchar(50);uniqueIndex;not null"`
	Password  string    `gorm:"type:varchar(100);not null"` // bcrypt hash
	Avatar    string    `gorm:"type:text"`
	IsAdmin   bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	JoinedRooms []*RoomModel `gorm:"many2many:user_rooms"`
}

// TableName specifies the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the model to a domain User.
func (u *UserModel) ToDomain() *User {
	user := &User{
		ID:        u.ID,
		Nickname:  u.Nickname,
		Avatar:    u.Avatar,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
	for _, r := range u.JoinedRooms {
		user.JoinedRooms = append(user.JoinedRooms, RoomRef{
			ID:        r.ID,
			Name:      r.Name,
			CreatedBy: r.CreatedBy,
		})
	}
	return user
}

// RoomModel is the GORM model for the rooms table. These are the
// password-gated rooms managed over REST; the relay itself accepts any
// room name.
type RoomModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	Name      string    `gorm:"type:varchar(200);uniqueIndex;not null"`
	Password  string    `gorm:"type:varchar(100);not null"` // bcrypt hash
	CreatedBy string    `gorm:"type:varchar(36);index;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for RoomModel.
func (RoomModel) TableName() string {
	return "rooms"
}

// ToDomain converts the model to a domain Room.
func (r *RoomModel) ToDomain() *Room {
	return &Room{
		ID:        r.ID,
		Name:      r.Name,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
	}
}
